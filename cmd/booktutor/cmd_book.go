package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
)

// BookCmd manages books
type BookCmd struct {
	Add  BookAddCmd  `cmd:"" help:"Register a book directory"`
	List BookListCmd `cmd:"" help:"List registered books"`
	Toc  BookTocCmd  `cmd:"" help:"Print the table of contents of a book"`
}

// BookAddCmd registers a book directory
type BookAddCmd struct {
	Dir string `arg:"" help:"Book directory, absolute or relative to the book root"`
}

func (c *BookAddCmd) Run(ctx *kong.Context, cli *CLI) error {
	bg := context.Background()
	a, _, err := cli.newApp(bg)
	if err != nil {
		return err
	}
	defer a.Close()

	record, err := a.AddBook(bg, c.Dir)
	if err != nil {
		return fmt.Errorf("failed to add book: %w", err)
	}
	fmt.Println(record.ID)
	return nil
}

// BookListCmd lists registered books
type BookListCmd struct {
	Format string `help:"Output format (table, json)" default:"table"`
}

func (c *BookListCmd) Run(ctx *kong.Context, cli *CLI) error {
	if err := checkFormat(c.Format); err != nil {
		return err
	}
	bg := context.Background()
	a, _, err := cli.newApp(bg)
	if err != nil {
		return err
	}
	defer a.Close()

	books, err := a.ListBooks(bg)
	if err != nil {
		return fmt.Errorf("failed to list books: %w", err)
	}
	if c.Format == "json" {
		return printJSON(books)
	}

	w := newTable(os.Stdout)
	fmt.Fprintln(w, "ID\tTITLE\tAUTHORS\tPATH")
	for _, b := range books {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", b.ID, b.Title, strings.Join(b.Authors, ", "), b.Path)
	}
	return w.Flush()
}

// BookTocCmd prints the table of contents of a book
type BookTocCmd struct {
	Book string `arg:"" help:"Book id"`
}

func (c *BookTocCmd) Run(ctx *kong.Context, cli *CLI) error {
	bg := context.Background()
	a, _, err := cli.newApp(bg)
	if err != nil {
		return err
	}
	defer a.Close()

	toc, err := a.TableOfContents(bg, c.Book)
	if err != nil {
		return fmt.Errorf("failed to read book %s: %w", c.Book, err)
	}
	fmt.Print(toc)
	return nil
}
