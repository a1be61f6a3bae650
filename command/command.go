// Package command encodes the commands the bridge hands to the terminal.
//
// A command file holds exactly one framed command:
//
//	<:NAME|arg1,arg2,...:>
//
// or, with numbered framing enabled,
//
//	<:ID|NAME|arg1,arg2,...:>
//
// Arguments are joined with commas and nothing is escaped. An argument that
// itself contains a comma (an order comment, say) cannot be told apart from
// two arguments on the terminal side.
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	CmdSubscribeSymbols        = "SUBSCRIBE_SYMBOLS"
	CmdSubscribeSymbolsBarData = "SUBSCRIBE_SYMBOLS_BAR_DATA"
	CmdGetHistoricData         = "GET_HISTORIC_DATA"
	CmdGetHistoricTrades       = "GET_HISTORIC_TRADES"
	CmdOpenOrder               = "OPEN_ORDER"
	CmdModifyOrder             = "MODIFY_ORDER"
	CmdCloseOrder              = "CLOSE_ORDER"
	CmdCloseAllOrders          = "CLOSE_ALL_ORDERS"
	CmdCloseOrdersBySymbol     = "CLOSE_ORDERS_BY_SYMBOL"
	CmdCloseOrdersByMagic      = "CLOSE_ORDERS_BY_MAGIC"
	CmdResetCommandIDs         = "RESET_COMMAND_IDS"
)

// Names lists every command the terminal understands.
var Names = []string{
	CmdSubscribeSymbols,
	CmdSubscribeSymbolsBarData,
	CmdGetHistoricData,
	CmdGetHistoricTrades,
	CmdOpenOrder,
	CmdModifyOrder,
	CmdCloseOrder,
	CmdCloseAllOrders,
	CmdCloseOrdersBySymbol,
	CmdCloseOrdersByMagic,
	CmdResetCommandIDs,
}

func Known(name string) bool {
	for _, n := range Names {
		if n == name {
			return true
		}
	}
	return false
}

const (
	openTag  = "<:"
	closeTag = ":>"
	sep      = "|"
	comma    = ","
)

// MaxID is the exclusive upper bound of numbered framing ids.
const MaxID = 100000

// ErrFraming is returned by Decode for text that is not a framed command.
var ErrFraming = errors.New("bad command framing")

// Command is a command name plus its positional arguments.
type Command struct {
	Name string
	Args []string
}

func New(name string, args ...string) Command {
	if len(args) == 0 {
		args = nil
	}
	return Command{Name: name, Args: args}
}

// Payload joins the arguments with commas.
func (c Command) Payload() string {
	return strings.Join(c.Args, comma)
}

// Encode frames c as "<:NAME|payload:>".
func (c Command) Encode() string {
	return openTag + c.Name + sep + c.Payload() + closeTag
}

// EncodeNumbered frames c as "<:ID|NAME|payload:>".
func (c Command) EncodeNumbered(id int) string {
	return openTag + strconv.Itoa(id) + sep + c.Name + sep + c.Payload() + closeTag
}

func (c Command) String() string {
	return c.Encode()
}

// Decode parses either framing. id is 0 for unnumbered commands. An empty
// payload decodes to nil Args.
func Decode(text string) (id int, c Command, err error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, openTag) || !strings.HasSuffix(text, closeTag) || len(text) < len(openTag)+len(closeTag) {
		return 0, Command{}, fmt.Errorf("%w: %q", ErrFraming, text)
	}
	body := text[len(openTag) : len(text)-len(closeTag)]

	head, rest, ok := strings.Cut(body, sep)
	if !ok {
		return 0, Command{}, fmt.Errorf("%w: missing %q in %q", ErrFraming, sep, text)
	}
	if n, err := strconv.Atoi(head); err == nil && n >= 0 {
		name, payload, ok := strings.Cut(rest, sep)
		if !ok {
			return 0, Command{}, fmt.Errorf("%w: numbered command without name in %q", ErrFraming, text)
		}
		id, head, rest = n, name, payload
	}
	if head == "" {
		return 0, Command{}, fmt.Errorf("%w: empty command name in %q", ErrFraming, text)
	}

	c = Command{Name: head}
	if rest != "" {
		c.Args = strings.Split(rest, comma)
	}
	return id, c, nil
}
