// Package config loads vecmmr settings from the environment, an optional
// .env file and, for the command line tool, a viper instance.
//
// Every setting is read from VECMMR_<NAME>, e.g. VECMMR_OVERFETCH_FACTOR or
// VECMMR_S3_BUCKET.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/viper"

	"github.com/hupe1980/vecmmr"
	"github.com/hupe1980/vecmmr/blobstore"
	minioblob "github.com/hupe1980/vecmmr/blobstore/minio"
	s3blob "github.com/hupe1980/vecmmr/blobstore/s3"
	"github.com/hupe1980/vecmmr/codec"
	"github.com/hupe1980/vecmmr/resource"
	"github.com/hupe1980/vecmmr/snapshot"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "VECMMR"

// Snapshot store backends.
const (
	StoreMemory = "memory"
	StoreLocal  = "local"
	StoreS3     = "s3"
	StoreS3DDB  = "s3ddb"
	StoreMinIO  = "minio"
)

var stores = []string{StoreMemory, StoreLocal, StoreS3, StoreS3DDB, StoreMinIO}

var (
	ErrInvalidLogLevel            = errors.New("log_level must be debug, info, warn, or error")
	ErrInvalidLogFormat           = errors.New("log_format must be 'text' or 'json'")
	ErrInvalidOverfetchFactor     = errors.New("overfetch_factor must be at least 1")
	ErrInvalidExhaustiveThreshold = errors.New("exhaustive_threshold cannot be negative")
	ErrInvalidStore               = errors.New("store must be memory, local, s3, s3ddb, or minio")
	ErrInvalidDataDir             = errors.New("data_dir cannot be empty for the local store")
	ErrInvalidCodec               = errors.New("codec must be json or go-json")
	ErrInvalidCompression         = errors.New("compression must be none, lz4, or zstd")
	ErrInvalidKeepSnapshots       = errors.New("keep_snapshots cannot be negative")
	ErrInvalidLimit               = errors.New("resource limits cannot be negative")
	ErrMissingBucket              = errors.New("bucket cannot be empty for the s3, s3ddb and minio stores")
	ErrMissingCommitTable         = errors.New("s3.commit_table cannot be empty for the s3ddb store")
	ErrMissingEndpoint            = errors.New("minio.endpoint cannot be empty for the minio store")
)

// S3Config configures the s3 and s3ddb stores.
type S3Config struct {
	Bucket    string `envconfig:"BUCKET" mapstructure:"bucket"`
	Prefix    string `envconfig:"PREFIX" default:"vecmmr" mapstructure:"prefix"`
	Region    string `envconfig:"REGION" mapstructure:"region"`
	Endpoint  string `envconfig:"ENDPOINT" mapstructure:"endpoint"`
	PathStyle bool   `envconfig:"PATH_STYLE" default:"false" mapstructure:"path_style"`
	// CommitTable is the DynamoDB table holding snapshot pointers (s3ddb only).
	CommitTable string `envconfig:"COMMIT_TABLE" mapstructure:"commit_table"`
}

// MinIOConfig configures the minio store.
type MinIOConfig struct {
	Endpoint  string `envconfig:"ENDPOINT" mapstructure:"endpoint"`
	AccessKey string `envconfig:"ACCESS_KEY" mapstructure:"access_key"`
	SecretKey string `envconfig:"SECRET_KEY" mapstructure:"secret_key"`
	UseSSL    bool   `envconfig:"USE_SSL" default:"true" mapstructure:"use_ssl"`
	Bucket    string `envconfig:"BUCKET" mapstructure:"bucket"`
	Prefix    string `envconfig:"PREFIX" default:"vecmmr" mapstructure:"prefix"`
	// CreateBucket makes the bucket on first use.
	CreateBucket bool `envconfig:"CREATE_BUCKET" default:"false" mapstructure:"create_bucket"`
}

// Config holds all settings of a vecmmr database.
type Config struct {
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" mapstructure:"log_level"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text" mapstructure:"log_format"`

	// Retrieval
	OverfetchFactor     int `envconfig:"OVERFETCH_FACTOR" default:"10" mapstructure:"overfetch_factor"`
	ExhaustiveThreshold int `envconfig:"EXHAUSTIVE_THRESHOLD" default:"1000" mapstructure:"exhaustive_threshold"`
	BatchConcurrency    int `envconfig:"BATCH_CONCURRENCY" default:"0" mapstructure:"batch_concurrency"`

	// Limits, zero means unlimited.
	MaxConcurrentQueries int64   `envconfig:"MAX_CONCURRENT_QUERIES" default:"0" mapstructure:"max_concurrent_queries"`
	QueriesPerSecond     float64 `envconfig:"QUERIES_PER_SECOND" default:"0" mapstructure:"queries_per_second"`
	QueryBurst           int     `envconfig:"QUERY_BURST" default:"0" mapstructure:"query_burst"`
	MemoryLimitBytes     int64   `envconfig:"MEMORY_LIMIT_BYTES" default:"0" mapstructure:"memory_limit_bytes"`
	IOLimitBytesPerSec   int64   `envconfig:"IO_LIMIT_BYTES_PER_SEC" default:"0" mapstructure:"io_limit_bytes_per_sec"`

	// Snapshots
	Store         string `envconfig:"STORE" default:"local" mapstructure:"store"`
	DataDir       string `envconfig:"DATA_DIR" default:"./data" mapstructure:"data_dir"`
	Codec         string `envconfig:"CODEC" default:"go-json" mapstructure:"codec"`
	Compression   string `envconfig:"COMPRESSION" default:"zstd" mapstructure:"compression"`
	KeepSnapshots int    `envconfig:"KEEP_SNAPSHOTS" default:"0" mapstructure:"keep_snapshots"`

	S3    S3Config    `envconfig:"S3" mapstructure:"s3"`
	MinIO MinIOConfig `envconfig:"MINIO" mapstructure:"minio"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		LogLevel:            "info",
		LogFormat:           "text",
		OverfetchFactor:     10,
		ExhaustiveThreshold: 1000,
		Store:               StoreLocal,
		DataDir:             "./data",
		Codec:               codec.Default.Name(),
		Compression:         snapshot.CompressionZstd.String(),
		S3:                  S3Config{Prefix: "vecmmr"},
		MinIO:               MinIOConfig{Prefix: "vecmmr", UseSSL: true},
	}
}

// LoadDotEnv loads the given env files, or .env when none is given. Missing
// files are ignored and variables that are already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads the configuration from env files and the environment and
// validates it.
func Load(files ...string) (Config, error) {
	if err := LoadDotEnv(files...); err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SetDefaults registers every key of Default with v, so that SetupEnv can
// resolve them from the environment.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("overfetch_factor", d.OverfetchFactor)
	v.SetDefault("exhaustive_threshold", d.ExhaustiveThreshold)
	v.SetDefault("batch_concurrency", d.BatchConcurrency)
	v.SetDefault("max_concurrent_queries", d.MaxConcurrentQueries)
	v.SetDefault("queries_per_second", d.QueriesPerSecond)
	v.SetDefault("query_burst", d.QueryBurst)
	v.SetDefault("memory_limit_bytes", d.MemoryLimitBytes)
	v.SetDefault("io_limit_bytes_per_sec", d.IOLimitBytesPerSec)
	v.SetDefault("store", d.Store)
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("codec", d.Codec)
	v.SetDefault("compression", d.Compression)
	v.SetDefault("keep_snapshots", d.KeepSnapshots)
	v.SetDefault("s3.bucket", d.S3.Bucket)
	v.SetDefault("s3.prefix", d.S3.Prefix)
	v.SetDefault("s3.region", d.S3.Region)
	v.SetDefault("s3.endpoint", d.S3.Endpoint)
	v.SetDefault("s3.path_style", d.S3.PathStyle)
	v.SetDefault("s3.commit_table", d.S3.CommitTable)
	v.SetDefault("minio.endpoint", d.MinIO.Endpoint)
	v.SetDefault("minio.access_key", d.MinIO.AccessKey)
	v.SetDefault("minio.secret_key", d.MinIO.SecretKey)
	v.SetDefault("minio.use_ssl", d.MinIO.UseSSL)
	v.SetDefault("minio.bucket", d.MinIO.Bucket)
	v.SetDefault("minio.prefix", d.MinIO.Prefix)
	v.SetDefault("minio.create_bucket", d.MinIO.CreateBucket)
}

// SetupEnv maps viper keys to VECMMR_ environment variables.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every setting.
func (c Config) Validate() error {
	if _, err := c.level(); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return ErrInvalidLogFormat
	}
	if c.OverfetchFactor < 1 {
		return ErrInvalidOverfetchFactor
	}
	if c.ExhaustiveThreshold < 0 {
		return ErrInvalidExhaustiveThreshold
	}
	if c.MaxConcurrentQueries < 0 || c.QueriesPerSecond < 0 || c.QueryBurst < 0 ||
		c.MemoryLimitBytes < 0 || c.IOLimitBytesPerSec < 0 {
		return ErrInvalidLimit
	}
	if _, ok := codec.ByName(c.Codec); !ok {
		return ErrInvalidCodec
	}
	if _, err := snapshot.ParseCompression(c.Compression); err != nil {
		return ErrInvalidCompression
	}
	if c.KeepSnapshots < 0 {
		return ErrInvalidKeepSnapshots
	}

	switch c.Store {
	case StoreMemory:
	case StoreLocal:
		if c.DataDir == "" {
			return ErrInvalidDataDir
		}
	case StoreS3, StoreS3DDB:
		if c.S3.Bucket == "" {
			return ErrMissingBucket
		}
		if c.Store == StoreS3DDB && c.S3.CommitTable == "" {
			return ErrMissingCommitTable
		}
	case StoreMinIO:
		if c.MinIO.Endpoint == "" {
			return ErrMissingEndpoint
		}
		if c.MinIO.Bucket == "" {
			return ErrMissingBucket
		}
	default:
		return ErrInvalidStore
	}
	return nil
}

func (c Config) level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, ErrInvalidLogLevel
	}
	return lvl, nil
}

// Logger returns a logger writing to stderr in the configured format.
func (c Config) Logger() (*vecmmr.Logger, error) {
	lvl, err := c.level()
	if err != nil {
		return nil, err
	}
	if c.LogFormat == "json" {
		return vecmmr.NewJSONLogger(lvl), nil
	}
	return vecmmr.NewTextLogger(lvl), nil
}

// Resources returns a controller enforcing the configured limits.
func (c Config) Resources() *resource.Controller {
	return resource.NewController(resource.Config{
		MaxConcurrentQueries: c.MaxConcurrentQueries,
		QueriesPerSecond:     c.QueriesPerSecond,
		QueryBurst:           c.QueryBurst,
		MemoryLimitBytes:     c.MemoryLimitBytes,
		IOLimitBytesPerSec:   c.IOLimitBytesPerSec,
	})
}

// BlobStore opens the configured snapshot store.
func (c Config) BlobStore(ctx context.Context) (blobstore.BlobStore, error) {
	switch c.Store {
	case StoreMemory:
		return blobstore.NewMemoryStore(), nil
	case StoreLocal:
		if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		return blobstore.NewLocalStore(c.DataDir), nil
	case StoreS3:
		return s3blob.New(ctx, c.S3.Bucket, func(o *s3blob.Options) {
			o.Prefix = c.S3.Prefix
			o.Region = c.S3.Region
			o.Endpoint = c.S3.Endpoint
			o.PathStyle = c.S3.PathStyle
		})
	case StoreS3DDB:
		return c.ddbStore(ctx)
	case StoreMinIO:
		client, err := minio.New(c.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(c.MinIO.AccessKey, c.MinIO.SecretKey, ""),
			Secure: c.MinIO.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("create minio client: %w", err)
		}
		store := minioblob.NewStore(client, c.MinIO.Bucket, c.MinIO.Prefix)
		if c.MinIO.CreateBucket {
			if err := store.EnsureBucket(ctx, ""); err != nil {
				return nil, fmt.Errorf("create bucket %s: %w", c.MinIO.Bucket, err)
			}
		}
		return store, nil
	default:
		return nil, ErrInvalidStore
	}
}

func (c Config) ddbStore(ctx context.Context) (blobstore.BlobStore, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if c.S3.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(c.S3.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if c.S3.Endpoint != "" {
			o.BaseEndpoint = &c.S3.Endpoint
		}
		o.UsePathStyle = c.S3.PathStyle
	})
	s3Store := s3blob.NewStore(client, c.S3.Bucket, c.S3.Prefix)
	baseURI := "s3://" + c.S3.Bucket + "/" + c.S3.Prefix
	return s3blob.NewDDBCommitStore(s3Store, dynamodb.NewFromConfig(awsCfg), c.S3.CommitTable, baseURI), nil
}

// Options translates the configuration into database options, opening the
// snapshot store.
func (c Config) Options(ctx context.Context) ([]vecmmr.Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	logger, err := c.Logger()
	if err != nil {
		return nil, err
	}
	store, err := c.BlobStore(ctx)
	if err != nil {
		return nil, err
	}
	cd, _ := codec.ByName(c.Codec)
	comp, _ := snapshot.ParseCompression(c.Compression)

	return []vecmmr.Option{
		vecmmr.WithLogger(logger),
		vecmmr.WithOverfetchFactor(c.OverfetchFactor),
		vecmmr.WithExhaustiveThreshold(c.ExhaustiveThreshold),
		vecmmr.WithBatchConcurrency(c.BatchConcurrency),
		vecmmr.WithResourceController(c.Resources()),
		vecmmr.WithBlobStore(store),
		vecmmr.WithCodec(cd),
		vecmmr.WithCompression(comp),
		vecmmr.WithKeepSnapshots(c.KeepSnapshots),
	}, nil
}

// Stores lists the accepted Store values.
func Stores() []string { return slices.Clone(stores) }
