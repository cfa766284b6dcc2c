package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/skilltrack/core"
	"github.com/trezcool/skilltrack/core/record"
)

func (cli *commandLine) createTable() error {
	ctx := context.Background()
	if err := cli.store.EnsureTable(ctx); err != nil {
		return err
	}
	logger.Println("table ready")
	return nil
}

// loadTemplates loads CourseTemplate records from a JSON file; templates are
// static reference data with no API creation path, this is it.
func (cli *commandLine) loadTemplates(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading templates file")
	}

	var tmpls []record.CourseTemplate
	if err = json.Unmarshal(data, &tmpls); err != nil {
		return errors.Wrap(err, "parsing templates file")
	}

	ctx := context.Background()
	for _, tmpl := range tmpls {
		if tmpl.ID == "" {
			return errors.Errorf("template %q is missing an ID", tmpl.CourseName)
		}
		if err = cli.store.PutTemplate(ctx, tmpl); err != nil {
			return errors.Wrapf(err, "putting template %q", tmpl.ID)
		}
		logger.Printf("loaded template %s", tmpl.ID)
	}
	logger.Printf("loaded %d template(s)", len(tmpls))
	return nil
}

// grantRole grants a role to a user, bootstrapping their record if needed.
func (cli *commandLine) grantRole(email, role string) error {
	switch role {
	case record.RoleStudent, record.RoleTeacher, record.RoleAdmin:
	default:
		return fmt.Errorf("unknown role %q", role)
	}
	email = core.CleanString(email, true /* lower */)

	ctx := context.Background()
	err := cli.store.AddRole(ctx, email, role)
	if errors.Cause(err) == record.ErrNotFound {
		usr := record.NewDefaultUser(email)
		usr.Roles = usr.Roles.Add(role)
		if err = cli.store.CreateUser(ctx, usr); errors.Cause(err) == record.ErrConflict {
			// record appeared in the meantime; grant on it instead
			err = cli.store.AddRole(ctx, email, role)
		}
	}
	if err != nil {
		return err
	}
	logger.Printf("granted %s to %s", role, email)
	return nil
}
