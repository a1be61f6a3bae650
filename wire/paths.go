package wire

import (
	"fmt"
	"path/filepath"
)

// Dir is the subdirectory of the terminal's files directory that holds
// every exchanged file.
const Dir = "DWX"

// Paths is the file layout inside the shared directory.
type Paths struct {
	Root           string
	Orders         string
	Messages       string
	MarketData     string
	BarData        string
	HistoricData   string
	HistoricTrades string
	OrdersStored   string
	MessagesStored string
	CommandsPrefix string
}

// NewPaths lays out the files under <metatraderDir>/DWX.
func NewPaths(metatraderDir string) Paths {
	root := filepath.Join(metatraderDir, Dir)
	return Paths{
		Root:           root,
		Orders:         filepath.Join(root, "DWX_Orders.txt"),
		Messages:       filepath.Join(root, "DWX_Messages.txt"),
		MarketData:     filepath.Join(root, "DWX_Market_Data.txt"),
		BarData:        filepath.Join(root, "DWX_Bar_Data.txt"),
		HistoricData:   filepath.Join(root, "DWX_Historic_Data.txt"),
		HistoricTrades: filepath.Join(root, "DWX_Historic_Trades.txt"),
		OrdersStored:   filepath.Join(root, "DWX_Orders_Stored.txt"),
		MessagesStored: filepath.Join(root, "DWX_Messages_Stored.txt"),
		CommandsPrefix: filepath.Join(root, "DWX_Commands_"),
	}
}

// CommandSlot returns the path of command slot i.
func (p Paths) CommandSlot(i int) string {
	return fmt.Sprintf("%s%d.txt", p.CommandsPrefix, i)
}
