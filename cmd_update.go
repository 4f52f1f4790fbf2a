package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh/spinner"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// releaseRepo is the GitHub repository release binaries are published to
var releaseRepo = "voicebridge/voicebridge"

var errDevBuild = errors.New("development builds cannot update themselves; install a release build")

func newUpdateCmd(app *appState) *cobra.Command {
	var checkOnly bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update voicebridge to the latest release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !isReleaseVersion(version) {
				return errDevBuild
			}

			ctx := cmd.Context()
			w := cmd.OutOrStdout()

			var (
				latest *selfupdate.Release
				found  bool
				err    error
			)
			_ = spinner.New().
				Title("Checking for updates...").
				Action(func() {
					latest, found, err = selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(releaseRepo))
				}).
				Run()
			if err != nil {
				return fmt.Errorf("check latest release: %w", err)
			}
			if !found {
				return fmt.Errorf("no release found for %s", releaseRepo)
			}

			if latest.LessOrEqual(version) {
				fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("voicebridge %s is up to date", version)))
				return nil
			}

			fmt.Fprintln(w, infoStyle.Render(fmt.Sprintf("New version available: %s (current %s)", latest.Version(), version)))
			if checkOnly {
				return nil
			}

			exe, err := selfupdate.ExecutablePath()
			if err != nil {
				return fmt.Errorf("locate executable: %w", err)
			}
			app.log().Debug("updating", zap.String("path", exe), zap.String("asset", latest.AssetName))

			_ = spinner.New().
				Title("Downloading " + latest.Version() + "...").
				Action(func() {
					err = selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe)
				}).
				Run()
			if err != nil {
				return fmt.Errorf("update binary: %w", err)
			}

			fmt.Fprintln(w, successStyle.Render("Updated to "+latest.Version()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkOnly, "check", false, "Only report whether an update is available")
	cmd.Flags().StringVar(&releaseRepo, "repo", releaseRepo, "GitHub owner/name to fetch releases from")

	return cmd
}

// isReleaseVersion reports whether v looks like a tagged build
func isReleaseVersion(v string) bool {
	v = strings.TrimPrefix(v, "v")
	return v != "" && v[0] >= '0' && v[0] <= '9'
}
