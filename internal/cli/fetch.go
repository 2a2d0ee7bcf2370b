package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/setanarut/nftgen/internal/fetch"
)

func newFetchCmd(st *state) *cobra.Command {
	var bucket, region, prefix string
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the layer tree from S3 into the layers directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if flags.Changed("bucket") {
				st.cfg.S3Bucket = bucket
			}
			if flags.Changed("region") {
				st.cfg.S3Region = region
			}
			if flags.Changed("prefix") {
				st.cfg.S3Prefix = prefix
			}
			n, err := st.fetchLayers(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(st.out, "fetched %d file(s) into %s\n", n, st.cfg.LayersDir)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&bucket, "bucket", "", "S3 bucket (env NFTGEN_S3_BUCKET)")
	f.StringVar(&region, "region", "", "S3 region (env NFTGEN_S3_REGION)")
	f.StringVar(&prefix, "prefix", "", "key prefix to download (env NFTGEN_S3_PREFIX)")
	return cmd
}

func (st *state) fetchLayers(ctx context.Context) (int, error) {
	if st.cfg.S3Bucket == "" {
		return 0, &ExitError{Code: 2, Message: "no S3 bucket configured"}
	}
	store, err := fetch.NewS3Store(ctx, st.cfg.S3Bucket, st.cfg.S3Region)
	if err != nil {
		return 0, fmt.Errorf("configure s3: %w", err)
	}
	f := &fetch.Fetcher{Store: store, Dest: st.cfg.LayersDir, Prefix: st.cfg.S3Prefix}
	return f.Fetch(ctx)
}
