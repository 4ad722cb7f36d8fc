package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

// StudentCmd manages students
type StudentCmd struct {
	Add  StudentAddCmd  `cmd:"" help:"Register a student"`
	List StudentListCmd `cmd:"" help:"List students"`
}

// StudentAddCmd registers a student
type StudentAddCmd struct {
	Name string `arg:"" help:"Name the tutor calls the student by"`
}

func (c *StudentAddCmd) Run(ctx *kong.Context, cli *CLI) error {
	bg := context.Background()
	a, _, err := cli.newApp(bg)
	if err != nil {
		return err
	}
	defer a.Close()

	student, err := a.AddStudent(bg, c.Name)
	if err != nil {
		return fmt.Errorf("failed to add student: %w", err)
	}
	fmt.Println(student.ID)
	return nil
}

// StudentListCmd lists students
type StudentListCmd struct {
	Format string `help:"Output format (table, json)" default:"table"`
}

func (c *StudentListCmd) Run(ctx *kong.Context, cli *CLI) error {
	if err := checkFormat(c.Format); err != nil {
		return err
	}
	bg := context.Background()
	a, _, err := cli.newApp(bg)
	if err != nil {
		return err
	}
	defer a.Close()

	students, err := a.ListStudents(bg)
	if err != nil {
		return fmt.Errorf("failed to list students: %w", err)
	}
	if c.Format == "json" {
		return printJSON(students)
	}

	w := newTable(os.Stdout)
	fmt.Fprintln(w, "ID\tNAME\tCREATED")
	for _, s := range students {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, s.Name, s.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
