package db

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var database *sql.DB

var ErrNotInitialized = errors.New("database not initialized")

// InitDB opens the SQLite database at path and creates the report tables.
func InitDB(path string) error {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	// a single connection keeps ":memory:" databases alive and serialises writers
	conn.SetMaxOpenConns(1)

	query := `
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        run_id TEXT NOT NULL,
        model_name VARCHAR(50),
        learning_rate REAL,
        epochs INTEGER,
        workers INTEGER,
        features INTEGER,
        data_points INTEGER,
        test_points INTEGER,
        status VARCHAR(20),
        accuracy REAL,
        test_accuracy REAL,
        precision REAL,
        recall REAL,
        error_message TEXT,
        started_at DATETIME,
        trained_at DATETIME,
        UNIQUE(run_id)
    );
    CREATE TABLE IF NOT EXISTS training_rounds (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        run_id TEXT NOT NULL,
        round INTEGER NOT NULL,
        train_accuracy REAL,
        test_accuracy REAL,
        train_loss REAL,
        elapsed_ms INTEGER,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        UNIQUE(run_id, round)
    );
    `
	if _, err := conn.Exec(query); err != nil {
		conn.Close()
		return err
	}
	database = conn
	return nil
}

func CloseDB() error {
	if database == nil {
		return nil
	}
	err := database.Close()
	database = nil
	return err
}

type TrainingLog struct {
	RunID        string    `json:"run_id"`
	ModelName    string    `json:"model_name"`
	LearningRate float64   `json:"learning_rate"`
	Epochs       int       `json:"epochs"`
	Workers      int       `json:"workers"`
	Features     int       `json:"features"`
	DataPoints   int       `json:"data_points"`
	TestPoints   int       `json:"test_points"`
	Status       string    `json:"status"`
	Accuracy     float64   `json:"accuracy"`
	TestAccuracy *float64  `json:"test_accuracy,omitempty"`
	Precision    float64   `json:"precision"`
	Recall       float64   `json:"recall"`
	Error        string    `json:"error,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	TrainedAt    time.Time `json:"trained_at"`
}

// SaveTrainingLog inserts or replaces the row for log.RunID.
func SaveTrainingLog(log TrainingLog) error {
	if database == nil {
		return ErrNotInitialized
	}
	if log.RunID == "" {
		return errors.New("run id required")
	}
	_, err := database.Exec(`
        INSERT OR REPLACE INTO training_log (
            run_id, model_name, learning_rate, epochs, workers, features,
            data_points, test_points, status, accuracy, test_accuracy,
            precision, recall, error_message, started_at, trained_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		log.RunID,
		log.ModelName,
		log.LearningRate,
		log.Epochs,
		log.Workers,
		log.Features,
		log.DataPoints,
		log.TestPoints,
		log.Status,
		log.Accuracy,
		nullFloat(log.TestAccuracy),
		log.Precision,
		log.Recall,
		log.Error,
		log.StartedAt.UTC(),
		log.TrainedAt.UTC(),
	)
	return err
}

func LoadTrainingLog() ([]TrainingLog, error) {
	if database == nil {
		return nil, ErrNotInitialized
	}
	rows, err := database.Query(`
        SELECT run_id, model_name, learning_rate, epochs, workers, features,
               data_points, test_points, status, accuracy, test_accuracy,
               precision, recall, error_message, started_at, trained_at
        FROM training_log
        ORDER BY started_at DESC, id DESC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]TrainingLog, 0)
	for rows.Next() {
		var log TrainingLog
		var testAccuracy sql.NullFloat64
		if err := rows.Scan(&log.RunID, &log.ModelName, &log.LearningRate, &log.Epochs, &log.Workers, &log.Features,
			&log.DataPoints, &log.TestPoints, &log.Status, &log.Accuracy, &testAccuracy,
			&log.Precision, &log.Recall, &log.Error, &log.StartedAt, &log.TrainedAt); err != nil {
			return nil, err
		}
		if testAccuracy.Valid {
			v := testAccuracy.Float64
			log.TestAccuracy = &v
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

type RoundRecord struct {
	RunID         string        `json:"run_id"`
	Round         int           `json:"round"`
	TrainAccuracy float64       `json:"train_accuracy"`
	TestAccuracy  *float64      `json:"test_accuracy,omitempty"`
	TrainLoss     float64       `json:"train_loss"`
	Elapsed       time.Duration `json:"elapsed"`
}

func SaveRound(record RoundRecord) error {
	if database == nil {
		return ErrNotInitialized
	}
	_, err := database.Exec(`
        INSERT OR REPLACE INTO training_rounds (
            run_id, round, train_accuracy, test_accuracy, train_loss, elapsed_ms
        ) VALUES (?, ?, ?, ?, ?, ?)
    `,
		record.RunID,
		record.Round,
		record.TrainAccuracy,
		nullFloat(record.TestAccuracy),
		record.TrainLoss,
		record.Elapsed.Milliseconds(),
	)
	return err
}

func LoadRounds(runID string) ([]RoundRecord, error) {
	if database == nil {
		return nil, ErrNotInitialized
	}
	rows, err := database.Query(`
        SELECT run_id, round, train_accuracy, test_accuracy, train_loss, elapsed_ms
        FROM training_rounds
        WHERE run_id = ?
        ORDER BY round ASC
    `, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]RoundRecord, 0)
	for rows.Next() {
		var r RoundRecord
		var testAccuracy sql.NullFloat64
		var elapsedMS int64
		if err := rows.Scan(&r.RunID, &r.Round, &r.TrainAccuracy, &testAccuracy, &r.TrainLoss, &elapsedMS); err != nil {
			return nil, err
		}
		if testAccuracy.Valid {
			v := testAccuracy.Float64
			r.TestAccuracy = &v
		}
		r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		records = append(records, r)
	}
	return records, rows.Err()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
