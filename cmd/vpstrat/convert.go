package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/lox/vpstrat/internal/fileutil"
	"github.com/lox/vpstrat/internal/sqlstore"
	"github.com/lox/vpstrat/internal/store"
	"github.com/lox/vpstrat/internal/stratjson"
	"github.com/lox/vpstrat/internal/table"
	"github.com/lox/vpstrat/internal/verify"
)

// ConvertCmd turns a JSON strategy export into a binary table.
type ConvertCmd struct {
	Input    string `arg:"" help:"JSON export, optionally gzip-compressed"`
	Paytable string `short:"p" help:"Paytable id (default: the export's paytable_id)"`
	Output   string `short:"o" help:"Output file (default: the paytable's bundle path)"`
	Wild     *bool  `help:"Write a wild table with 12-byte keys (default: when any key holds the joker)"`
}

func (c *ConvertCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}

	f, err := stratjson.ReadFile(c.Input)
	if err != nil {
		return err
	}
	id := c.Paytable
	if id == "" {
		id = f.PaytableID
	}
	if !store.ValidID(id) {
		return fmt.Errorf("invalid paytable id %q: pass --paytable", id)
	}

	entries, err := f.Entries()
	if err != nil {
		return err
	}
	wild := f.Wild()
	if c.Wild != nil {
		wild = *c.Wild
	}
	data, err := table.Build(entries, wild)
	if err != nil {
		return err
	}

	out := c.Output
	if out == "" {
		out = cfg.Resolver().BundlePath(id)
	}
	if err := table.WriteFile(out, data); err != nil {
		return err
	}
	fmt.Fprintf(g.writer(), "%s wrote %s hands to %s (%s)\n", goodStyle.Render("ok"),
		humanize.Comma(int64(len(entries))), out, humanize.Bytes(uint64(len(data))))
	return nil
}

// ExportCmd copies a binary table into a SQLite database.
type ExportCmd struct {
	Paytable string `short:"p" required:"" help:"Paytable id"`
	DB       string `name:"db" required:"" help:"SQLite database to write"`
	JSON     string `name:"json" help:"Also write a JSON export to this path (.gz compresses)"`
}

func (c *ExportCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.store.Table(c.Paytable)
	if err != nil {
		return err
	}
	entries := make([]table.Entry, 0, t.Len())
	for i, key := range t.Keys() {
		rec := t.Record(i)
		entries = append(entries, table.Entry{Key: verify.KeyString(key), BestHold: rec.BestHold, EVs: rec.EVs})
	}

	db, err := sqlstore.Open(c.DB, a.logger)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := db.Import(context.Background(), sqlstore.Meta{PaytableID: c.Paytable}, entries)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s exported %s hands to %s\n", goodStyle.Render("ok"), humanize.Comma(int64(n)), c.DB)

	if c.JSON != "" {
		if err := writeJSON(c.JSON, stratjson.FromEntries(c.Paytable, entries)); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s wrote %s\n", goodStyle.Render("ok"), c.JSON)
	}
	return nil
}

func writeJSON(path string, f *stratjson.File) error {
	var buf bytes.Buffer
	if err := stratjson.Write(&buf, f, filepath.Ext(path) == ".gz"); err != nil {
		return err
	}
	_, err := fileutil.WriteAtomic(path, &buf, 0o644)
	return err
}

// InstallCmd places a downloaded table in the cache directory.
type InstallCmd struct {
	File     string `arg:"" help:"Downloaded .vpstrat2 file"`
	Paytable string `short:"p" required:"" help:"Paytable id the file belongs to"`
}

func (c *InstallCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	fh, err := os.Open(c.File)
	if err != nil {
		return err
	}
	defer fh.Close()

	if err := a.store.Install(c.Paytable, fh); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s installed %s at %s\n", goodStyle.Render("ok"), c.Paytable, a.store.InstallPath(c.Paytable))
	return nil
}
