package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/councilsense/minutes-cli/internal/profile"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the interest profile",
}

var (
	profileInitPath  string
	profileInitForce bool
)

var profileInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter interest profile",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := profileInitPath
		if path == "" {
			path = profile.DefaultPath()
		}
		written, err := profile.Init(path, profileInitForce)
		if err != nil {
			return err
		}
		zap.L().Info("interest profile ready", zap.String("path", written))
		_, err = fmt.Fprintln(cmd.OutOrStdout(), written)
		return err
	},
}

var profilePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the interest profile path that analyze would use",
	RunE: func(cmd *cobra.Command, _ []string) error {
		explicit := cfg.Profile.Path
		_, err := fmt.Fprintln(cmd.OutOrStdout(), profile.ResolvePath(explicit, false))
		return err
	},
}

func init() {
	profileInitCmd.Flags().StringVar(&profileInitPath, "path", "", "where to write the profile (default: XDG config dir)")
	profileInitCmd.Flags().BoolVar(&profileInitForce, "force", false, "overwrite an existing profile")

	profileCmd.AddCommand(profileInitCmd, profilePathCmd)
	rootCmd.AddCommand(profileCmd)
}
