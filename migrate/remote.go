package migrate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds S3 credentials. Empty fields fall back to the default AWS
// configuration chain.
type S3Config struct {
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"` // Optional: custom S3-compatible endpoint
}

type urlScheme string

const (
	schemeFile  urlScheme = "file"
	schemeS3    urlScheme = "s3"
	schemeHTTP  urlScheme = "http"
	schemeHTTPS urlScheme = "https"
	schemeGit   urlScheme = "git"
	schemeLocal urlScheme = "local" // no scheme, local path
)

func detectScheme(location string) urlScheme {
	lower := strings.ToLower(location)
	switch {
	case strings.HasPrefix(lower, "git+"):
		return schemeGit
	case strings.HasPrefix(lower, "s3://"):
		return schemeS3
	case strings.HasPrefix(lower, "https://"):
		return schemeHTTPS
	case strings.HasPrefix(lower, "http://"):
		return schemeHTTP
	case strings.HasPrefix(lower, "file://"):
		return schemeFile
	default:
		return schemeLocal
	}
}

func localPath(location string) string {
	return strings.TrimPrefix(location, "file://")
}

// localSource reads a directory of migrations or a single file.
type localSource struct {
	path string
}

func (s *localSource) Location() string {
	return s.path
}

func (s *localSource) Migrations(ctx context.Context) ([]Migration, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open migrations: %w", err)
	}
	if info.IsDir() {
		return readTree(osTree{}, s.path)
	}

	content, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration: %w", err)
	}
	return []Migration{newMigration(migrationName(filepath.ToSlash(s.path)), content)}, nil
}

type osTree struct{}

func (osTree) list(dir string) ([]dirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make([]dirEntry, len(entries))
	for i, entry := range entries {
		out[i] = entry
	}
	return out, nil
}

func (osTree) read(file string) ([]byte, error) {
	return os.ReadFile(file)
}

func (osTree) join(elem ...string) string {
	return filepath.Join(elem...)
}

// httpSource fetches a single migration file.
type httpSource struct {
	url    string
	client *http.Client
}

func (s *httpSource) Location() string {
	return s.url
}

func (s *httpSource) Migrations(ctx context.Context) ([]Migration, error) {
	body, err := openHTTPReader(ctx, s.client, s.url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	content, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration: %w", err)
	}

	name := s.url
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	return []Migration{newMigration(migrationName(name), content)}, nil
}

func openHTTPReader(ctx context.Context, client *http.Client, url string) (io.ReadCloser, error) {
	if client == nil {
		client = &http.Client{Timeout: time.Minute}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP request returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// s3Source reads every migration below a key prefix.
type s3Source struct {
	location string
	bucket   string
	prefix   string
	client   *s3.Client
}

// parseS3URL parses s3://bucket/prefix into bucket and prefix parts
func parseS3URL(url string) (bucket, prefix string, err error) {
	rest := strings.TrimPrefix(url, "s3://")
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("invalid S3 URL: %s", url)
	}
	return bucket, prefix, nil
}

func newS3Source(ctx context.Context, location string, cfg S3Config) (*s3Source, error) {
	bucket, prefix, err := parseS3URL(location)
	if err != nil {
		return nil, err
	}
	client, err := getS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &s3Source{location: location, bucket: bucket, prefix: prefix, client: client}, nil
}

func getS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		opts = append(opts, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // For S3-compatible services
		})
	}
	return s3.NewFromConfig(awsCfg, clientOpts...), nil
}

func (s *s3Source) Location() string {
	return s.location
}

func (s *s3Source) Migrations(ctx context.Context) ([]Migration, error) {
	prefix := s.prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list S3 objects: %w", err)
		}
		for _, object := range page.Contents {
			key := aws.ToString(object.Key)
			if isMigrationKey(strings.TrimPrefix(key, prefix)) {
				keys = append(keys, key)
			}
		}
	}

	migrations := make([]Migration, 0, len(keys))
	for _, key := range keys {
		content, err := s.get(ctx, key)
		if err != nil {
			return nil, err
		}
		migrations = append(migrations, newMigration(migrationName(key), content))
	}
	return sortMigrations(migrations), nil
}

// isMigrationKey accepts <name>.sql and <name>/migration.sql below the prefix.
func isMigrationKey(rel string) bool {
	switch strings.Count(rel, "/") {
	case 0:
		return isSQLFile(rel)
	case 1:
		return path.Base(rel) == migrationFile
	default:
		return false
	}
}

func (s *s3Source) get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get S3 object: %w", err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object %s: %w", key, err)
	}
	return content, nil
}
