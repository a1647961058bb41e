package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ajitpratap0/xlsx2parquet/pkg/formats/parquet"
	"github.com/ajitpratap0/xlsx2parquet/pkg/json"
)

func printInfo(w io.Writer, info *parquet.Info, asJSON bool) error {
	if asJSON {
		return json.WriteIndented(w, info)
	}

	p := message.NewPrinter(language.English)
	p.Fprintf(w, "File:       %s\n", info.Path)
	p.Fprintf(w, "Size:       %.2f MB\n", float64(info.Bytes)/(1024*1024))
	p.Fprintf(w, "Rows:       %d\n", info.Rows)
	p.Fprintf(w, "Codec:      %s\n", info.Codec)
	p.Fprintf(w, "Row groups: %d\n", len(info.RowGroups))
	for i, n := range info.RowGroups {
		p.Fprintf(w, "  #%d: %d rows\n", i, n)
	}

	fmt.Fprintln(w, "Schema:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, f := range info.Schema {
		fmt.Fprintf(tw, "  %s\t%s\n", f.Name, f.Type)
	}
	return tw.Flush()
}
