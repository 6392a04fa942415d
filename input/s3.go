package input

import (
	"fmt"
	"io"
	"path"

	"github.com/archivelab/fcbatch"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3InputConfig represents the S3Input configurable fields model.
type S3InputConfig struct {
	AwsCfg *aws.Config
	// Bucket holds the metadata sheet and the binaries.
	Bucket string `validate:"required"`
	// Prefix is the key prefix the sheet and binaries live under.
	Prefix string
	// MetadataFile is the sheet key below the prefix.
	MetadataFile string `validate:"required"`
}

// NewS3Input returns a new instance of the S3Input.
func NewS3Input(cfg S3InputConfig) *S3Input {
	return &S3Input{Cfg: cfg}
}

// S3Input represents an input that reads the metadata sheet and the binaries
// from an AWS S3 bucket, for batches staged in object storage.
type S3Input struct {
	fcbatch.BaseStorage
	Cfg S3InputConfig
	svc *s3.S3
}

// Setup contains the storage preparations like connection etc. As for the
// S3Input, it checks whether the config for the input is proper by connecting
// and performing a simple S3 API call.
func (i *S3Input) Setup() error {
	sess, err := session.NewSession(i.Cfg.AwsCfg)
	if err != nil {
		return fmt.Errorf("failed to create a new s3 session: %v", err)
	}
	i.svc = s3.New(sess)
	if _, err := i.svc.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(i.Cfg.Bucket),
		Key:    aws.String(i.metadataKey()),
	}); err != nil {
		return fmt.Errorf("failed to access metadata sheet s3://%s/%s: %v", i.Cfg.Bucket, i.metadataKey(), err)
	}
	return nil
}

// Metadata opens the metadata sheet for reading.
func (i *S3Input) Metadata() (io.ReadCloser, error) {
	return i.open(i.metadataKey())
}

// StatBinary returns the size of the named binary. A missing object is an
// explicit error.
func (i *S3Input) StatBinary(name string) (int64, error) {
	head, err := i.svc.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(i.Cfg.Bucket),
		Key:    aws.String(i.binaryKey(name)),
	})
	if err != nil {
		return 0, fmt.Errorf("cannot access file s3://%s/%s: %v", i.Cfg.Bucket, i.binaryKey(name), err)
	}
	return aws.Int64Value(head.ContentLength), nil
}

// OpenBinary opens the named binary for reading. The object body is streamed,
// not buffered.
func (i *S3Input) OpenBinary(name string) (io.ReadCloser, error) {
	return i.open(i.binaryKey(name))
}

// open fetches the object with the given key and returns its body.
func (i *S3Input) open(key string) (io.ReadCloser, error) {
	obj, err := i.svc.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(i.Cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %v", i.Cfg.Bucket, key, err)
	}
	return obj.Body, nil
}

func (i *S3Input) metadataKey() string {
	return path.Join(i.Cfg.Prefix, i.Cfg.MetadataFile)
}

func (i *S3Input) binaryKey(name string) string {
	return path.Join(i.Cfg.Prefix, path.Base(name))
}
