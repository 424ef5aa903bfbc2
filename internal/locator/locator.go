// Package locator resolves the file argument of a command into a local
// path or an S3 object reference.
package locator

import (
	"fmt"
	"net/url"
	"strings"

	awsarn "github.com/aws/aws-sdk-go-v2/aws/arn"
)

type Kind string

const (
	KindLocal Kind = "local"
	KindS3    Kind = "s3"
)

type Ref struct {
	Kind   Kind
	Raw    string
	Path   string
	Bucket string
	Key    string
}

// Parse resolves v into a reference. "s3://bucket/key" URIs and S3
// object ARNs become S3 refs; everything else is a local path.
func Parse(v string) (Ref, error) {
	if strings.HasPrefix(v, "s3://") {
		return parseS3URI(v)
	}
	if strings.HasPrefix(v, "arn:") {
		return parseS3ARN(v)
	}
	return Ref{Kind: KindLocal, Raw: v, Path: v}, nil
}

func parseS3URI(v string) (Ref, error) {
	u, err := url.Parse(v)
	if err != nil {
		return Ref{}, fmt.Errorf("invalid s3 uri %q: %w", v, err)
	}
	if u.Host == "" {
		return Ref{}, fmt.Errorf("s3 uri %q must include a bucket", v)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return Ref{}, fmt.Errorf("s3 uri %q must include an object key", v)
	}
	return Ref{Kind: KindS3, Raw: v, Bucket: u.Host, Key: key}, nil
}

func parseS3ARN(v string) (Ref, error) {
	a, err := awsarn.Parse(v)
	if err != nil {
		return Ref{}, fmt.Errorf("invalid arn: %w", err)
	}
	if a.Service != "s3" {
		return Ref{}, fmt.Errorf("unsupported arn service %q", a.Service)
	}
	bucket, key, ok := strings.Cut(a.Resource, "/")
	if !ok || bucket == "" || key == "" {
		return Ref{}, fmt.Errorf("unsupported s3 arn %q, expected an object arn with bucket and key", v)
	}
	return Ref{Kind: KindS3, Raw: v, Bucket: bucket, Key: key}, nil
}
