package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coney-io/coney/pkg/image"
)

var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Manage the local image store",
}

func openStore(cmd *cobra.Command) (*image.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return image.NewStore(cfg.ImageRoot)
}

var imageImportCmd = &cobra.Command{
	Use:   "import <ref> <archive>",
	Short: "Import a rootfs archive under an image reference",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		rec, err := store.Import(context.Background(), args[0], args[1])
		if err != nil {
			return err
		}

		fmt.Printf("Imported %s (%d bytes) -> %s\n", rec.Ref, rec.SizeBytes, rec.RootfsPath)
		return nil
	},
}

var imageListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached images",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		records, err := store.List()
		if err != nil {
			return err
		}

		fmt.Printf("%-40s %-14s %s\n", "REFERENCE", "SIZE", "IMPORTED")
		for _, rec := range records {
			fmt.Printf("%-40s %-14d %s\n", rec.Ref, rec.SizeBytes, rec.ImportedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var imageRmCmd = &cobra.Command{
	Use:   "rm <ref>",
	Short: "Remove a cached image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Remove(args[0]); err != nil {
			return err
		}
		fmt.Printf("Image %s removed\n", args[0])
		return nil
	},
}

func init() {
	imageCmd.AddCommand(imageImportCmd)
	imageCmd.AddCommand(imageListCmd)
	imageCmd.AddCommand(imageRmCmd)
}
