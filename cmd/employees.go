package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"laptop-checkpoint/internal/types"

	"github.com/spf13/cobra"
)

var (
	employeeName       string
	employeeDepartment string
	employeeEmail      string
	employeeSearch     string
)

var employeesCmd = &cobra.Command{
	Use:   "employees",
	Short: "Manage the employee directory used to resolve barcodes",
}

var employeesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known employees and their laptops",
	RunE:  runEmployeesList,
}

var employeesAddCmd = &cobra.Command{
	Use:   "add <device-id>",
	Short: "Add or replace an employee in the local directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runEmployeesAdd,
}

func init() {
	employeesListCmd.Flags().StringVarP(&employeeSearch, "search", "s", "", "only employees whose name, email or department contains this")

	employeesAddCmd.Flags().StringVar(&employeeName, "name", "", "employee name (required)")
	employeesAddCmd.Flags().StringVar(&employeeDepartment, "department", "", "department")
	employeesAddCmd.Flags().StringVar(&employeeEmail, "email", "", "email address")
	employeesAddCmd.MarkFlagRequired("name")

	employeesCmd.AddCommand(employeesListCmd, employeesAddCmd)
	rootCmd.AddCommand(employeesCmd)
}

func runEmployeesList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var identities []types.Identity
	if employeeSearch != "" {
		identities, err = a.service.SearchIdentities(cmd.Context(), employeeSearch)
	} else {
		identities, err = a.service.Identities(cmd.Context())
	}
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DEVICE\tNAME\tDEPARTMENT\tEMAIL")
	for _, id := range identities {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", id.ID, id.Name, id.Department, id.Email)
	}
	return w.Flush()
}

func runEmployeesAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	identity := types.Identity{
		ID:         types.NormalizeBarcode(args[0]),
		Name:       strings.TrimSpace(employeeName),
		Department: strings.TrimSpace(employeeDepartment),
		Email:      strings.TrimSpace(employeeEmail),
	}
	if err := a.service.AddIdentity(cmd.Context(), identity); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s)\n", identity.Name, identity.ID)
	return nil
}
