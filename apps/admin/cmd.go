package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/trezcool/skilltrack/core/record"
)

var errHelp = errors.New("help provided")

// adminStore is the record store plus the table bootstrap only tooling needs.
type adminStore interface {
	record.Store
	EnsureTable(ctx context.Context) error
}

type commandLine struct {
	store adminStore
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  createtable                          - create the record table if it does not exist")
	fmt.Println("  loadtemplates -file FILE             - load course templates from a JSON file")
	fmt.Println("  grantrole -email EMAIL -role ROLE    - grant a role (Student|Teacher|Admin) to a user")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	loadTemplatesCmd := flag.NewFlagSet("loadtemplates", flag.ExitOnError)
	loadTemplatesFile := loadTemplatesCmd.String("file", "", "Path to a JSON file holding a list of course templates.")

	grantRoleCmd := flag.NewFlagSet("grantrole", flag.ExitOnError)
	grantRoleEmail := grantRoleCmd.String("email", "", "The user's email.")
	grantRoleRole := grantRoleCmd.String("role", "", "The role to grant: Student, Teacher or Admin.")

	switch args[1] {
	case "createtable":
		return cli.createTable()
	case "loadtemplates":
		if err := loadTemplatesCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loadTemplatesFile == "" {
			loadTemplatesCmd.Usage()
			return errHelp
		}
		return cli.loadTemplates(*loadTemplatesFile)
	case "grantrole":
		if err := grantRoleCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *grantRoleEmail == "" || *grantRoleRole == "" {
			grantRoleCmd.Usage()
			return errHelp
		}
		return cli.grantRole(*grantRoleEmail, *grantRoleRole)
	default:
		cli.printUsage()
		return errHelp
	}
}
