// Package s3 offloads completed backup snapshots to S3-compatible storage.
package s3

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/supporttools/EnvReset/pkg/config"
)

// Client uploads snapshot files to a bucket.
type Client struct {
	s3Client *s3.Client
	cfg      config.BackupSettings
	log      *logrus.Logger
}

// NewClient creates a new S3 client from the backup settings.
func NewClient(cfg config.BackupSettings, log *logrus.Logger) (*Client, error) {
	if !cfg.S3Enable {
		return nil, errors.New("s3 offload is not enabled in configuration")
	}

	s3Client, err := newS3Client(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize S3 client")
	}

	return &Client{
		s3Client: s3Client,
		cfg:      cfg,
		log:      log,
	}, nil
}

// newS3Client initializes the SDK client based on configuration. A custom
// endpoint selects S3-compatible storage (MinIO and friends); otherwise the
// region picks standard AWS S3.
func newS3Client(cfg config.BackupSettings) (*s3.Client, error) {
	ctx := context.Background()

	sdkOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKey, cfg.S3SecretKey, "",
		)),
	}
	if cfg.S3Region != "" {
		sdkOptions = append(sdkOptions, awsconfig.WithRegion(cfg.S3Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, sdkOptions...)
	if err != nil {
		return nil, errors.Wrap(err, "AWS SDK config initialization error")
	}

	s3Options := []func(*s3.Options){
		func(o *s3.Options) {
			o.UsePathStyle = cfg.S3PathStyle
		},
	}
	if cfg.S3Endpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		})
	}

	return s3.NewFromConfig(awsCfg, s3Options...), nil
}

// UploadTree uploads every regular file under root. Objects are keyed by the
// configured prefix, the snapshot's base name, and the file's path relative
// to root. Per-file failures are logged and do not stop the remaining files.
func (c *Client) UploadTree(root string) error {
	base := filepath.Base(root)
	uploaded := 0

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		key := path.Join(c.cfg.S3Prefix, base, filepath.ToSlash(rel))

		if err := c.uploadFile(p, key); err != nil {
			c.log.Errorf("failed to upload %s to s3://%s/%s: %v", p, c.cfg.S3Bucket, key, err)
			return nil
		}

		c.log.Debugf("uploaded s3://%s/%s", c.cfg.S3Bucket, key)
		uploaded++
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "failed to walk snapshot %s", root)
	}

	c.log.Infof("offloaded %d snapshot files to s3://%s/%s", uploaded, c.cfg.S3Bucket, path.Join(c.cfg.S3Prefix, base))
	return nil
}

func (c *Client) uploadFile(filePath, key string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return errors.Wrap(err, "failed to open snapshot file")
	}
	defer file.Close()

	_, err = c.s3Client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(c.cfg.S3Bucket),
		Key:    aws.String(key),
		Body:   file,
	})
	return err
}
