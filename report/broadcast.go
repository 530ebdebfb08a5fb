package report

import "perceptron/monitoring"

// Publisher is satisfied by *monitoring.RealtimeMonitor.
type Publisher interface {
	Publish(msgType monitoring.MessageType, topic string, data interface{}) error
}

// Broadcast pushes run events to websocket clients, using the run id as topic.
type Broadcast struct {
	publisher Publisher
}

func NewBroadcast(publisher Publisher) *Broadcast {
	return &Broadcast{publisher: publisher}
}

func (b *Broadcast) Start(info RunInfo) error {
	return b.publisher.Publish(monitoring.RunStarted, info.RunID, info)
}

func (b *Broadcast) Report(r RoundReport) error {
	return b.publisher.Publish(monitoring.RoundReport, r.RunID, r)
}

func (b *Broadcast) Finish(s Summary) error {
	return b.publisher.Publish(monitoring.RunFinished, s.RunID, s)
}
