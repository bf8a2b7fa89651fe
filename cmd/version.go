package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ksuda/kiroku/internal/release"
)

// version is set via -ldflags at build time.
var version = "(devel)"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("kiroku", version)

		check, _ := cmd.Flags().GetBool("check")
		if !check {
			return nil
		}

		checker := release.NewChecker()
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		res, err := checker.Check(ctx, version)
		if errors.Is(err, release.ErrDevBuild) {
			fmt.Println("Cannot check a development build for updates.")
			return nil
		}
		if err != nil {
			return err
		}

		if res.UpdateAvailable {
			fmt.Printf("A newer release is available: %s\n", res.LatestVersion)
		} else {
			fmt.Println("Already running the latest version.")
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().Bool("check", false, "Check GitHub for a newer release")
}
