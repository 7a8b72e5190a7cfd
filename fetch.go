package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/planset-go/internal/acquire"
)

// fetchedFilePerms matches what a browser download would create.
const fetchedFilePerms = 0o644

func newFetchCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "fetch <sharing-url|path> [dest]",
		Short: "Acquire and validate a planset PDF without reviewing it",
		Long: `Acquire a planset PDF through the same path a review uses, validate it,
and save a copy. dest defaults to the declared file name in the current
directory; an existing directory receives the declared name.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest := ""
			if len(args) == 2 {
				dest = args[1]
			}

			return runFetch(cmd, args[0], dest, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing destination file")

	return cmd
}

type fetchOutput struct {
	Path        string             `json:"path"`
	Name        string             `json:"name"`
	SizeBytes   int64              `json:"size_bytes"`
	Provenance  acquire.Provenance `json:"provenance"`
	ContentType string             `json:"content_type"`
}

func runFetch(cmd *cobra.Command, arg, dest string, force bool) error {
	cc := mustCLIContext(cmd.Context())

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	ctx = shutdownContext(ctx, cc.Logger)

	token, err := userToken(cc)
	if err != nil {
		return err
	}

	src, cleanup, err := sourceFromArg(arg, token)
	if err != nil {
		return err
	}
	defer cleanup()

	router := newRouter(cc.Cfg, cc.Logger)

	file, err := router.Acquire(ctx, src)
	if err != nil {
		return err
	}
	defer file.Release()

	if err := acquire.Validate(file, router.Limits); err != nil {
		return err
	}

	target, err := fetchTarget(dest, file.DeclaredName)
	if err != nil {
		return err
	}

	if err := copyFile(file.Path, target, force); err != nil {
		return err
	}

	cc.Statusf("Saved %s (%s, via %s)\n", target, formatSize(file.Size), file.Provenance)

	if cc.Flags.JSON {
		enc := json.NewEncoder(cc.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(fetchOutput{
			Path:        target,
			Name:        file.DeclaredName,
			SizeBytes:   file.Size,
			Provenance:  file.Provenance,
			ContentType: file.ContentType,
		})
	}

	return nil
}

// fetchTarget picks the destination path. The declared name is sanitized
// before it touches the filesystem.
func fetchTarget(dest, declared string) (string, error) {
	name := acquire.SanitizeName(declared)
	if name == "" {
		name = acquire.DefaultName
	}

	if dest == "" {
		return name, nil
	}

	info, err := os.Stat(dest)
	if err == nil && info.IsDir() {
		return filepath.Join(dest, name), nil
	}

	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("checking destination %s: %w", dest, err)
	}

	return dest, nil
}

func copyFile(src, dst string, force bool) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening fetched file: %w", err)
	}
	defer in.Close()

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}

	out, err := os.OpenFile(dst, flags, fetchedFilePerms)
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("%s already exists (use --force to overwrite)", dst)
	}

	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}

	// A partial file would make the next fetch without --force refuse.
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)

		return fmt.Errorf("writing %s: %w", dst, err)
	}

	if err := out.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("closing %s: %w", dst, err)
	}

	return nil
}
