package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gorm.io/dynform/cli"
)

var version = "v0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "dynform",
		Short:        "Scaffolds models and forms embedding has-many relations",
		SilenceUsage: true,
	}
	cmd.AddCommand(newGenCmd(), newInitCmd(), newVersionCmd())
	return cmd
}

func newGenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generates project files",
	}
	cmd.AddCommand(newGenFormCmd())
	return cmd
}

func newGenFormCmd() *cobra.Command {
	var (
		modelName  string
		attributes string
		relations  string
		baseFolder string
	)

	cmd := &cobra.Command{
		Use:   "form",
		Short: "Generates a model and its form, e.g. gen form --name User --attributes name:string:required --relations Pets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli.Output = cmd.OutOrStdout()

			fields, err := cli.ParseFields(attributes)
			if err != nil {
				return err
			}

			var rels []cli.RelationInfo
			if relations != "" {
				if rels, err = cli.ParseRelations(relations); err != nil {
					return err
				}
			}

			if err := cli.GenerateForm(modelName, fields, rels, baseFolder); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Done!")
			return nil
		},
	}

	cmd.Flags().StringVar(&modelName, "name", "", "Model name, e.g.: User")
	cmd.Flags().StringVar(&attributes, "attributes", "", "Model attributes, e.g.: name:string:required,age:uint,user_id:ref")
	cmd.Flags().StringVar(&relations, "relations", "", "Has-many relations embedded in the form, e.g.: Pets,Accounts:Account:wallets")
	cmd.Flags().StringVar(&baseFolder, "folder", ".", "Base folder of the project")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("attributes")
	return cmd
}

func newInitCmd() *cobra.Command {
	var (
		baseFolder string
		backend    string
		database   string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generates " + cli.ConfigFile + " for a log backend: default, zap, logrus, zerolog, slog, logr",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli.Output = cmd.OutOrStdout()
			if err := cli.GenerateConfig(baseFolder, backend, database); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.ConfigFile, "created successfully for", backend)
			return nil
		},
	}

	cmd.Flags().StringVar(&baseFolder, "folder", ".", "Base folder of the project")
	cmd.Flags().StringVar(&backend, "log", "default", "Log backend")
	cmd.Flags().StringVar(&database, "db", "", "Database file")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Prints the version of the dynform utility",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "dynform version", version)
		},
	}
}
