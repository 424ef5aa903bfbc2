// Package s3 moves whole archive files between the local filesystem and
// S3, so the CLI can operate on s3:// locations through a scratch copy.
package s3

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/transfermanager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/islishude/filepack/internal/locator"
)

type Store struct {
	client *awss3.Client
	tm     *transfermanager.Client
}

type Settings struct {
	PartSizeMB  int64
	Concurrency int
}

func New(ctx context.Context) (*Store, error) {
	var cfg aws.Config
	var err error
	if retryMax, ok := intFromEnv("FILEPACK_S3_MAX_RETRIES"); ok {
		cfg, err = config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(retryMax))
	} else {
		cfg, err = config.LoadDefaultConfig(ctx)
	}
	if err != nil {
		return nil, err
	}

	settings := Settings{PartSizeMB: 16, Concurrency: 4}
	if v, ok := int64FromEnv("FILEPACK_S3_PART_SIZE_MB"); ok && v > 0 {
		settings.PartSizeMB = v
	}
	if v, ok := intFromEnv("FILEPACK_S3_CONCURRENCY"); ok && v > 0 {
		settings.Concurrency = v
	}

	client := awss3.NewFromConfig(cfg, func(o *awss3.Options) {
		if strings.EqualFold(strings.TrimSpace(os.Getenv("FILEPACK_S3_USE_PATH_STYLE")), "true") {
			o.UsePathStyle = true
		}
	})
	tm := transfermanager.New(client, func(o *transfermanager.Options) {
		o.PartSizeBytes = settings.PartSizeMB * 1024 * 1024
		o.Concurrency = settings.Concurrency
	})
	return &Store{client: client, tm: tm}, nil
}

// Download copies the referenced object to destPath.
func (s *Store) Download(ctx context.Context, ref locator.Ref, destPath string) (err error) {
	if ref.Kind != locator.KindS3 {
		return fmt.Errorf("ref %q is not s3", ref.Raw)
	}
	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Body.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	f, err := os.Create(destPath)
	if err != nil {
		return err
	}
	if _, err = io.Copy(f, out.Body); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Upload streams the local file at srcPath to the referenced object.
func (s *Store) Upload(ctx context.Context, srcPath string, ref locator.Ref) (err error) {
	if ref.Kind != locator.KindS3 {
		return fmt.Errorf("ref %q is not s3", ref.Raw)
	}
	f, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	_, err = s.tm.UploadObject(ctx, &transfermanager.UploadObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
		Body:   f,
	})
	return err
}

// Delete removes the referenced object.
func (s *Store) Delete(ctx context.Context, ref locator.Ref) error {
	if ref.Kind != locator.KindS3 {
		return fmt.Errorf("ref %q is not s3", ref.Raw)
	}
	_, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	})
	return err
}

func intFromEnv(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	x, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return x, true
}

func int64FromEnv(key string) (int64, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	x, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return x, true
}
