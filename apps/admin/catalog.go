package main

import (
	"context"
	"fmt"
	"text/tabwriter"
)

func (cli *commandLine) seed() error {
	n, err := cli.crsSvc.SeedIfEmpty(context.Background())
	if err != nil {
		return err
	}
	if n == 0 {
		fmt.Fprintln(cli.out, "catalog already populated, nothing to seed")
		return nil
	}
	fmt.Fprintf(cli.out, "seeded %d courses\n", n)
	return nil
}

// courses prints the catalog with the number of seats taken in each course.
func (cli *commandLine) courses() error {
	courses, err := cli.crsSvc.ListCourses(context.Background())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCODE\tTITLE\tINSTRUCTOR\tCREDITS\tSEATS")
	for _, c := range courses {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d/%d\n", c.ID, c.Code, c.Title, c.Instructor, c.Credits, c.Enrolled, c.Capacity)
	}
	return w.Flush()
}
