package release

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/nexuslabs/nexus-gateway/internal/models"
)

// S3Config holds bucket layout configuration for the S3 strategy.
type S3Config struct {
	Bucket string
	// Prefix is the key prefix under which manifests and artifacts live,
	// without leading or trailing slashes.
	Prefix string
	Region string
	// PresignTTL bounds presigned download links.
	PresignTTL time.Duration
}

// S3Strategy resolves artifacts from manifests stored in an object bucket at
// {prefix}/{channel}/{platform}-{arch}.yml, with downloads served through
// short-lived presigned links.
type S3Strategy struct {
	cfg     S3Config
	client  *s3.Client
	presign *s3.PresignClient
	logger  zerolog.Logger
}

// NewS3Strategy creates the S3 strategy. Credentials come from the default
// provider chain.
func NewS3Strategy(ctx context.Context, cfg S3Config, logger zerolog.Logger) (*S3Strategy, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 strategy requires a bucket")
	}
	if cfg.PresignTTL == 0 {
		cfg.PresignTTL = 15 * time.Minute
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &S3Strategy{
		cfg:     cfg,
		client:  client,
		presign: s3.NewPresignClient(client),
		logger:  logger.With().Str("component", "s3_strategy").Logger(),
	}, nil
}

// Source identifies this strategy.
func (s *S3Strategy) Source() models.Source { return models.SourceS3 }

func (s *S3Strategy) manifestKey(channel models.Channel, platform models.Platform, arch models.Arch) string {
	name := fmt.Sprintf("%s-%s%s", platform, arch, ManifestExt)
	return strings.TrimPrefix(path.Join(s.cfg.Prefix, string(channel), name), "/")
}

// Resolve fetches and parses the tuple's manifest object. A missing object
// means not applicable; a present but invalid manifest is an error.
func (s *S3Strategy) Resolve(ctx context.Context, channel models.Channel, platform models.Platform, arch models.Arch, _ string) (*models.UpdateConfig, error) {
	key := s.manifestKey(channel, platform, arch)

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.cfg.Bucket,
		Key:    &key,
	})
	if err != nil {
		// The SDK has no stable sentinel across NoSuchKey/NotFound variants;
		// a missing manifest is routine, so treat any fetch failure here as
		// not applicable and log it.
		s.logger.Debug().Err(err).Str("key", key).Msg("manifest object not readable")
		return nil, nil
	}
	defer out.Body.Close()

	body, err := io.ReadAll(io.LimitReader(out.Body, maxManifestSize))
	if err != nil {
		return nil, fmt.Errorf("read manifest object %s: %w", key, err)
	}

	m, err := ParseManifest(body)
	if err != nil {
		return nil, fmt.Errorf("manifest object %s: %w", key, err)
	}

	// Manifests in the bucket reference artifact objects by key relative to
	// the channel directory unless they carry an absolute URL.
	objectKey := m.FileURL
	if !strings.Contains(objectKey, "://") {
		objectKey = strings.TrimPrefix(path.Join(s.cfg.Prefix, string(channel), objectKey), "/")
	}

	return &models.UpdateConfig{
		Channel:      channel,
		Platform:     platform,
		Arch:         arch,
		Source:       models.SourceS3,
		Version:      m.Version,
		FileURL:      m.FileURL,
		FileName:     models.LastPathSegment(m.FileURL),
		SHA512:       m.SHA512,
		Size:         m.Size,
		ReleaseDate:  m.ReleaseDate,
		ReleaseNotes: m.ReleaseNotes,
		Bucket:       s.cfg.Bucket,
		ObjectKey:    objectKey,
	}, nil
}

// PresignDownload mints a short-lived download link for an artifact object.
func (s *S3Strategy) PresignDownload(ctx context.Context, bucket, objectKey string) (string, error) {
	if bucket == "" || objectKey == "" {
		return "", errors.New("presign requires bucket and object key")
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &objectKey,
	}, s3.WithPresignExpires(s.cfg.PresignTTL))
	if err != nil {
		return "", fmt.Errorf("presign %s/%s: %w", bucket, objectKey, err)
	}
	return req.URL, nil
}
