package report

import (
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Console prints human readable progress lines.
type Console struct {
	out     io.Writer
	printer *message.Printer
}

func NewConsole(out io.Writer) *Console {
	return &Console{out: out, printer: message.NewPrinter(language.English)}
}

// Printf writes a localised line, grouping large counts ("1,000,000").
func (c *Console) Printf(format string, args ...interface{}) {
	c.printer.Fprintf(c.out, format, args...)
}

func (c *Console) percent(v float64) string {
	return c.printer.Sprintf("%.2f%%", v*100)
}

func (c *Console) Start(info RunInfo) error {
	c.Printf("Training model on %d examples (%d features), lr=%g, epochs=%d\n",
		info.TrainSize, info.Features, info.LearningRate, info.Epochs)
	return nil
}

func (c *Console) Report(r RoundReport) error {
	// the epoch column is not digit-grouped
	line := fmt.Sprintf("Epoch %4d: Train Acc = %s", r.Round, c.percent(r.TrainAccuracy))
	if r.TestAccuracy != nil {
		line += c.printer.Sprintf(", Test Acc = %s", c.percent(*r.TestAccuracy))
	}
	line += c.printer.Sprintf(", Time = %.2fs\n", r.Elapsed.Seconds())
	_, err := io.WriteString(c.out, line)
	return err
}

func (c *Console) Finish(s Summary) error {
	c.Printf("\nFinal Results (%s after %d rounds, %.2fs):\n", s.Status, s.Rounds, s.Duration.Seconds())
	c.Printf("Training Accuracy: %s\n", c.percent(s.Train.Accuracy))
	if s.Test != nil {
		c.Printf("Test Accuracy:     %s\n", c.percent(s.Test.Accuracy))
	}
	if s.Error != "" {
		c.Printf("Error: %s\n", s.Error)
	}
	return nil
}
