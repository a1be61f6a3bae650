package journal

import (
	"encoding/csv"
	"errors"
	"os"
	"strconv"
	"time"
)

var (
	messageHeader = []string{"millis", "time", "type", "message", "error_type", "description"}
	equityHeader  = []string{"time", "balance", "equity", "free_margin", "open_orders"}
	commandHeader = []string{"id", "time", "name", "payload", "slot", "attempts", "elapsed_ms", "result", "error"}
)

type csvFile struct {
	f *os.File
	w *csv.Writer
}

func createCSV(path string, header []string) (*csvFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	c := &csvFile{f: f, w: csv.NewWriter(f)}
	if err := c.write(header); err != nil {
		f.Close()
		return nil, err
	}
	return c, nil
}

// write flushes after every row so a crash loses at most the row in flight.
func (c *csvFile) write(row []string) error {
	if err := c.w.Write(row); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

func (c *csvFile) close() error {
	c.w.Flush()
	return errors.Join(c.w.Error(), c.f.Close())
}

type CSVJournal struct {
	messages *csvFile
	equity   *csvFile
	commands *csvFile
}

func NewCSV(messagesPath, equityPath, commandsPath string) (*CSVJournal, error) {
	if messagesPath == "" || equityPath == "" || commandsPath == "" {
		return nil, errors.New("csv journal: messages_file, equity_file and commands_file are required")
	}

	j := &CSVJournal{}
	var err error
	if j.messages, err = createCSV(messagesPath, messageHeader); err != nil {
		return nil, err
	}
	if j.equity, err = createCSV(equityPath, equityHeader); err != nil {
		j.messages.close()
		return nil, err
	}
	if j.commands, err = createCSV(commandsPath, commandHeader); err != nil {
		j.messages.close()
		j.equity.close()
		return nil, err
	}
	return j, nil
}

func (j *CSVJournal) RecordMessage(m MessageRecord) error {
	return j.messages.write([]string{
		strconv.FormatInt(m.Millis, 10),
		m.Time.UTC().Format(time.RFC3339Nano),
		m.Type,
		m.Message,
		m.ErrorType,
		m.Description,
	})
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	return j.equity.write([]string{
		e.Time.UTC().Format(time.RFC3339),
		f(e.Balance),
		f(e.Equity),
		f(e.FreeMargin),
		strconv.Itoa(e.OpenOrders),
	})
}

func (j *CSVJournal) RecordCommand(c CommandRecord) error {
	return j.commands.write([]string{
		c.ID,
		c.Time.UTC().Format(time.RFC3339),
		c.Name,
		c.Payload,
		strconv.Itoa(c.Slot),
		strconv.Itoa(c.Attempts),
		f(float64(c.Elapsed) / float64(time.Millisecond)),
		c.Result,
		c.Error,
	})
}

func (j *CSVJournal) Close() error {
	return errors.Join(j.messages.close(), j.equity.close(), j.commands.close())
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
