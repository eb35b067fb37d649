package main

import (
	"github.com/urfave/cli/v2"
)

func diff(c *cli.Context) error {
	target := loadPosition(c.Path("target"))
	current := loadPosition(c.Path("current"))

	printEntries(target.Sub(current).Entries())
	return nil
}
