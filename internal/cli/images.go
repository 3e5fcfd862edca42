package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tinypal/internal/assets"
	"tinypal/internal/upstream"
)

func init() {
	resolve := &cobra.Command{
		Use:   "resolve-image [path]",
		Short: "Print the absolute URL an image path resolves to",
		Long:  "Absolute URLs are printed unchanged, rooted paths are joined to the base origin and bare names land under /images/. An empty path prints null.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runResolveImage,
	}

	upload := &cobra.Command{
		Use:   "upload-image [file]",
		Short: "Upload an image to object storage and print its resolved URL",
		Args:  cobra.ExactArgs(1),
		RunE:  runUploadImage,
	}

	RootCmd.AddCommand(resolve, upload)
}

func runResolveImage(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	resolver := upstream.NewImageResolver(cfg.APIBaseURL)

	var path *string
	if len(args) == 1 {
		path = &args[0]
	}
	return printJSON(cmd.OutOrStdout(), resolver.Resolve(path))
}

func runUploadImage(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	uploader, err := assets.NewUploader(assets.Config{
		SecretID:   cfg.COSSecretID,
		SecretKey:  cfg.COSSecretKey,
		Region:     cfg.COSRegion,
		BucketName: cfg.COSBucketName,
	})
	if errors.Is(err, assets.ErrUploadUnavailable) {
		return fmt.Errorf("%w: set TINYPAL_COS_SECRET_ID, TINYPAL_COS_SECRET_KEY and TINYPAL_COS_BUCKET_NAME", err)
	}
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	name, err := uploader.Upload(cmd.Context(), data, filepath.Base(args[0]))
	if err != nil {
		return err
	}
	resolved := upstream.NewImageResolver(cfg.APIBaseURL).Resolve(&name)
	return printJSON(cmd.OutOrStdout(), map[string]any{
		"file_name": name,
		"image_url": resolved,
	})
}
