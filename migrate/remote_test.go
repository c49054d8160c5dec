package migrate

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/releases/20240101_init.sql" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "CREATE TABLE t (id INTEGER);")
	}))
	defer server.Close()

	source, err := Open(context.Background(), server.URL+"/releases/20240101_init.sql?v=2", Options{})
	require.NoError(t, err)

	migrations, err := source.Migrations(context.Background())
	require.NoError(t, err)
	require.Len(t, migrations, 1)
	assert.Equal(t, "20240101_init", migrations[0].Name)
	assert.Equal(t, "CREATE TABLE t (id INTEGER);", migrations[0].SQL)

	missing, err := Open(context.Background(), server.URL+"/nope.sql", Options{})
	require.NoError(t, err)
	_, err = missing.Migrations(context.Background())
	assert.ErrorContains(t, err, "status 404")
}

// fakeS3 serves ListObjectsV2 and GetObject for one bucket.
func fakeS3(t *testing.T, bucket string, objects map[string]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/"+bucket)
		key = strings.TrimPrefix(key, "/")

		if key == "" && r.URL.Query().Get("list-type") == "2" {
			prefix := r.URL.Query().Get("prefix")
			var contents strings.Builder
			count := 0
			for name := range objects {
				if strings.HasPrefix(name, prefix) {
					fmt.Fprintf(&contents, "<Contents><Key>%s</Key><Size>%d</Size></Contents>", name, len(objects[name]))
					count++
				}
			}
			w.Header().Set("Content-Type", "application/xml")
			fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>`+
				`<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`+
				`<Name>%s</Name><Prefix>%s</Prefix><KeyCount>%d</KeyCount><MaxKeys>1000</MaxKeys>`+
				`<IsTruncated>false</IsTruncated>%s</ListBucketResult>`,
				bucket, prefix, count, contents.String())
			return
		}

		body, ok := objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		fmt.Fprint(w, body)
	}))
}

func TestS3Source(t *testing.T) {
	server := fakeS3(t, "deploy", map[string]string{
		"app/migrations/20240201_posts/migration.sql": "CREATE TABLE posts (id INTEGER);",
		"app/migrations/20240101_init/migration.sql":  "CREATE TABLE users (id INTEGER);",
		"app/migrations/migration_lock.toml":          `provider = "postgresql"`,
		"app/migrations/20240301_deep/x/migration.sql": "SELECT 1;",
		"app/other.sql": "SELECT 2;",
	})
	defer server.Close()

	source, err := Open(context.Background(), "s3://deploy/app/migrations", Options{S3: S3Config{
		AccessKey: "key",
		SecretKey: "secret",
		Region:    "us-east-1",
		Endpoint:  server.URL,
	}})
	require.NoError(t, err)

	migrations, err := source.Migrations(context.Background())
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, "20240101_init", migrations[0].Name)
	assert.Equal(t, "CREATE TABLE users (id INTEGER);", migrations[0].SQL)
	assert.Equal(t, "20240201_posts", migrations[1].Name)
}

func TestParseS3URL(t *testing.T) {
	bucket, prefix, err := parseS3URL("s3://bucket/a/b")
	require.NoError(t, err)
	assert.Equal(t, "bucket", bucket)
	assert.Equal(t, "a/b", prefix)

	_, _, err = parseS3URL("s3:///a")
	assert.Error(t, err)
}

func TestIsMigrationKey(t *testing.T) {
	assert.True(t, isMigrationKey("001_init.sql"))
	assert.True(t, isMigrationKey("001_init/migration.sql"))
	assert.False(t, isMigrationKey("001_init/other.sql"))
	assert.False(t, isMigrationKey("a/b/migration.sql"))
	assert.False(t, isMigrationKey("migration_lock.toml"))
}
