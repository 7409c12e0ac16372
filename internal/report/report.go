// Package report renders a Document's discovered functions and
// cross-references as ANSI-colored tables, and colors the Mark spans a
// FormatCell/FormatMultiCell call returns for terminal display.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"medusa/internal/address"
	"medusa/internal/document"
)

// FunctionsTable writes every delimited function in doc, sorted by address.
func FunctionsTable(w io.Writer, doc *document.Document) {
	addrs := doc.Functions()
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Less(addrs[j]) })

	rows := make([][]string, 0, len(addrs))
	for _, a := range addrs {
		mc, ok := doc.RetrieveMultiCell(a)
		if !ok {
			continue
		}
		fn, ok := mc.(*document.Function)
		if !ok {
			continue
		}
		rows = append(rows, []string{
			a.String(),
			functionName(doc, a),
			fmt.Sprintf("%d", fn.InsnCount),
			fmt.Sprintf("%d", fn.ByteLength),
		})
	}
	renderTable(w, "Functions", []string{"Address", "Name", "Instructions", "Bytes"}, rows)
}

// XRefsTable writes every label with at least one inbound reference,
// sorted by address.
func XRefsTable(w io.Writer, doc *document.Document) {
	entries := doc.Labels()
	sort.Slice(entries, func(i, j int) bool { return entries[i].Addr.Less(entries[j].Addr) })

	var rows [][]string
	for _, e := range entries {
		refs := doc.GetXRefs().ReferencesTo(e.Addr)
		if len(refs) == 0 {
			continue
		}
		sort.Slice(refs, func(i, j int) bool { return refs[i].Less(refs[j]) })
		srcs := make([]string, len(refs))
		for i, r := range refs {
			srcs[i] = r.String()
		}
		rows = append(rows, []string{
			e.Addr.String(),
			e.Label.Name,
			fmt.Sprintf("%d", len(refs)),
			strings.Join(srcs, ", "),
		})
	}
	renderTable(w, "Cross-references", []string{"Address", "Label", "Refs", "From"}, rows)
}

func functionName(doc *document.Document, addr address.Address) string {
	if lbl := doc.GetLabelFromAddress(addr); !lbl.IsZero() {
		return lbl.Name
	}
	return fmt.Sprintf("sub_%s", addr.String())
}

func renderTable(w io.Writer, title string, headers []string, rows [][]string) {
	color.New(color.Bold).Fprintln(w, title)

	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignLeft}},
			Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignLeft}},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.Border{Left: tw.Off, Right: tw.Off, Top: tw.Off, Bottom: tw.Off},
			Settings: tw.Settings{
				Separators: tw.Separators{BetweenColumns: tw.Off},
			},
		}),
	)
	table.Header(headers)
	for _, row := range rows {
		table.Append(row)
	}
	table.Render()
	fmt.Fprintln(w)
}

// ColorizeLine applies a color per Mark to a FormatCell/FormatMultiCell
// result, returning plain text when colored is false (a non-TTY stdout).
func ColorizeLine(text string, marks []document.Mark, colored bool) string {
	if !colored || len(marks) == 0 {
		return text
	}

	var b strings.Builder
	cursor := 0
	for _, m := range marks {
		if m.Offset < cursor || m.Offset+m.Length > len(text) {
			continue
		}
		b.WriteString(text[cursor:m.Offset])
		c := markColor(m.Kind)
		c.EnableColor()
		b.WriteString(c.Sprint(text[m.Offset : m.Offset+m.Length]))
		cursor = m.Offset + m.Length
	}
	b.WriteString(text[cursor:])
	return b.String()
}

func markColor(kind document.MarkKind) *color.Color {
	switch kind {
	case document.MarkMnemonic:
		return color.New(color.FgCyan, color.Bold)
	case document.MarkOperand:
		return color.New(color.FgYellow)
	case document.MarkAddress:
		return color.New(color.FgBlue)
	case document.MarkImmediate:
		return color.New(color.FgMagenta)
	case document.MarkComment:
		return color.New(color.FgGreen)
	default:
		return color.New()
	}
}
