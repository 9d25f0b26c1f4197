package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	std, err := cli.stdSvc.ResetPassword(context.Background(), email, pwd)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "password updated for %s (%s)\n", std.Email, std.EnrollmentNo)
	return nil
}
