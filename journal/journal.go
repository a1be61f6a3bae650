// Package journal records what the bridge saw and did: terminal messages,
// account equity on every order set change, and every command sent.
package journal

import (
	"fmt"
	"time"

	"github.com/rustyeddy/dwxconnect/broker"
	"github.com/rustyeddy/dwxconnect/command"
	"github.com/rustyeddy/dwxconnect/dispatch"
	"github.com/rustyeddy/dwxconnect/internal/id"
)

// MessageRecord is one terminal message. Millis is the terminal's key.
type MessageRecord struct {
	Millis      int64
	Time        time.Time
	Type        string
	Message     string
	ErrorType   string
	Description string
}

type EquitySnapshot struct {
	Time       time.Time
	Balance    float64
	Equity     float64
	FreeMargin float64
	OpenOrders int
}

// CommandRecord is one send attempt, successful or not.
type CommandRecord struct {
	ID       string
	Time     time.Time
	Name     string
	Payload  string
	Slot     int
	Attempts int
	Elapsed  time.Duration
	Result   string
	Error    string
}

type Journal interface {
	RecordMessage(MessageRecord) error
	RecordEquity(EquitySnapshot) error
	RecordCommand(CommandRecord) error
	Close() error
}

// MessageFrom converts a terminal message.
func MessageFrom(m broker.Message) MessageRecord {
	return MessageRecord{
		Millis:      m.Millis,
		Time:        time.UnixMilli(m.Millis).UTC(),
		Type:        m.Type,
		Message:     m.Message,
		ErrorType:   m.ErrorType,
		Description: m.Description,
	}
}

// EquityFrom snapshots an account and its open order count.
func EquityFrom(t time.Time, a broker.Account, openOrders int) EquitySnapshot {
	return EquitySnapshot{
		Time:       t.UTC(),
		Balance:    a.Balance(),
		Equity:     a.Equity(),
		FreeMargin: a.FreeMargin(),
		OpenOrders: openOrders,
	}
}

// CommandFrom converts a dispatcher outcome. The record time is the send
// start embedded in the receipt id, or now when the id is not a ULID.
func CommandFrom(c command.Command, r dispatch.Receipt, err error) CommandRecord {
	at, perr := id.Time(r.ID)
	if perr != nil {
		at = time.Now()
	}
	rec := CommandRecord{
		ID:       r.ID,
		Time:     at.UTC(),
		Name:     c.Name,
		Payload:  c.Payload(),
		Slot:     r.Slot,
		Attempts: r.Attempts,
		Elapsed:  r.Elapsed,
		Result:   dispatch.Result(err),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	return rec
}

// Config selects and configures a journal.
type Config struct {
	Type         string `yaml:"type" json:"type"` // none, csv or sqlite
	DBPath       string `yaml:"db_path" json:"db_path"`
	MessagesFile string `yaml:"messages_file" json:"messages_file"`
	EquityFile   string `yaml:"equity_file" json:"equity_file"`
	CommandsFile string `yaml:"commands_file" json:"commands_file"`
}

// Open builds the journal cfg describes.
func Open(cfg Config) (Journal, error) {
	switch cfg.Type {
	case "", "none":
		return Nop{}, nil
	case "csv":
		j, err := NewCSV(cfg.MessagesFile, cfg.EquityFile, cfg.CommandsFile)
		if err != nil {
			return nil, err
		}
		return j, nil
	case "sqlite":
		j, err := NewSQLite(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return j, nil
	default:
		return nil, fmt.Errorf("unknown journal type %q", cfg.Type)
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordMessage(MessageRecord) error { return nil }
func (Nop) RecordEquity(EquitySnapshot) error { return nil }
func (Nop) RecordCommand(CommandRecord) error { return nil }
func (Nop) Close() error                      { return nil }
