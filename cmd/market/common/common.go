package common

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/logrusorgru/aurora"
	"github.com/olekukonko/tablewriter"
	"github.com/textileio/marketgate/api/client"
	"github.com/textileio/marketgate/market"
)

var (
	// MarketClient is the marketd client.
	MarketClient *client.Client

	// CmdTimeout is the standard timeout.
	CmdTimeout = time.Second * 60
)

// FmtOutput allows to configure where Message(), Success(), and
// Fatal() helpers should write.
var FmtOutput io.Writer = os.Stdout

// Message prints a message to stdout.
func Message(format string, args ...interface{}) {
	fmt.Fprintln(FmtOutput, aurora.Sprintf(aurora.BrightBlack("> "+format), args...))
}

// Success prints a success message to stdout.
func Success(format string, args ...interface{}) {
	fmt.Fprintln(FmtOutput, aurora.Sprintf(aurora.Cyan("> Success! %s"),
		aurora.Sprintf(aurora.BrightBlack(format), args...)))
}

// Fatal prints a fatal error to stdout, and exits immediately with
// error code 1.
func Fatal(err error, args ...interface{}) {
	words := strings.SplitN(err.Error(), " ", 2)
	words[0] = strings.Title(words[0])
	msg := strings.Join(words, " ")
	fmt.Fprintln(FmtOutput, aurora.Sprintf(aurora.Red("> Error! %s"),
		aurora.Sprintf(aurora.BrightBlack(msg), args...)))
	os.Exit(1)
}

// RenderTable renders a table with header columns and data rows to writer.
func RenderTable(writer io.Writer, header []string, data [][]string) {
	table := tablewriter.NewWriter(writer)
	table.SetHeader(header)
	table.SetBorder(false)
	headersColors := make([]tablewriter.Colors, len(header))
	for i := range headersColors {
		headersColors[i] = tablewriter.Colors{tablewriter.FgHiBlackColor}
	}
	table.SetHeaderColor(headersColors...)
	table.AppendBulk(data)
	table.Render()
}

// CheckErr calls Fatal if there is an error.
func CheckErr(e error) {
	if e != nil {
		Fatal(e)
	}
}

// Ctx returns a context with the standard timeout.
func Ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), CmdTimeout)
}

// MustParseAmount parses a decimal amount argument or exits.
func MustParseAmount(s string) big.Int {
	amt, err := market.ParseAmount(s)
	CheckErr(err)
	return amt
}

// PrintJSON prints v as indented JSON.
func PrintJSON(v interface{}) {
	buf, err := json.MarshalIndent(v, "", "  ")
	CheckErr(err)
	fmt.Fprintln(FmtOutput, string(buf))
}

// RenderSales renders sales as a table.
func RenderSales(sales []market.Sale) {
	rows := make([][]string, len(sales))
	for i, s := range sales {
		rows[i] = []string{s.NFTContractID, s.TokenID, s.OwnerID, s.SaleConditions.String(), fmt.Sprintf("%d", s.ApprovalID)}
	}
	RenderTable(FmtOutput, []string{"contract", "token", "owner", "price", "approval"}, rows)
}

// RenderUses renders use offers as a table.
func RenderUses(uses []market.UseOffer) {
	rows := make([][]string, len(uses))
	for i, u := range uses {
		rows[i] = []string{u.NFTContractID, u.TokenID, u.OwnerID, u.UseConditions.String()}
	}
	RenderTable(FmtOutput, []string{"contract", "token", "owner", "use price"}, rows)
}

// RenderResolutions renders resolutions as a table.
func RenderResolutions(rs []market.Resolution) {
	rows := make([][]string, len(rs))
	for i, r := range rs {
		resolved := "-"
		if r.ResolvedAt != 0 {
			resolved = humanize.Time(time.Unix(r.ResolvedAt, 0))
		}
		rows[i] = []string{
			r.ID,
			r.Kind.String(),
			r.Status.String(),
			r.Key().String(),
			r.BuyerID,
			r.Deposit.String(),
			humanize.Time(time.Unix(r.CreatedAt, 0)),
			resolved,
		}
	}
	RenderTable(FmtOutput, []string{"id", "kind", "status", "listing", "buyer", "deposit", "created", "resolved"}, rows)
}

// RenderResolution prints the details of a resolution.
func RenderResolution(r market.Resolution) {
	RenderResolutions([]market.Resolution{r})
	if r.ErrMsg != "" {
		Message("Refund reason: %s", r.ErrMsg)
	}
	if len(r.Payout) == 0 {
		return
	}
	rcpts := make([]string, 0, len(r.Payout))
	for rcpt := range r.Payout {
		rcpts = append(rcpts, rcpt)
	}
	sort.Strings(rcpts)
	rows := make([][]string, len(rcpts))
	for i, rcpt := range rcpts {
		rows[i] = []string{rcpt, r.Payout[rcpt].String()}
	}
	RenderTable(FmtOutput, []string{"recipient", "amount"}, rows)
}
