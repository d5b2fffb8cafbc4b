package config

const (
	defaultCacheDir               = "~/.cache/loadcheck"
	defaultLogDir                 = "~/.local/share/loadcheck"
	defaultRequestTimeoutSeconds  = 30
	defaultRPCTimeoutSeconds      = 30
	defaultRPCName                = "mark_dat_validated"
	defaultStorageBackend         = "supabase"
	defaultStorageBucket          = "raw-archive"
	defaultBeginColumn            = "Begin Bates"
	defaultEndColumn              = "End Bates"
	defaultBatchSize              = 1000
	defaultMaxConsecutiveFailures = 5
	defaultBatchPauseMillis       = 300
	defaultFailurePauseMillis     = 5000
	defaultProgressEvery          = 10
	defaultSpotCheckLimit         = 5
	defaultRetryAttempts          = 3
	defaultServerErrorBaseMS      = 3000
	defaultServerErrorStepMS      = 2000
	defaultTimeoutWaitMS          = 5000
	defaultDatasetWorkers         = 1
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// StorageBackendSupabase fetches objects over the Supabase storage REST API.
const StorageBackendSupabase = "supabase"

// StorageBackendGCS fetches objects from Google Cloud Storage.
const StorageBackendGCS = "gcs"

// DefaultDatasets is the catalog of DOJ volumes. Datasets 6 and 9 were
// published with an extra directory level.
func DefaultDatasets() []Dataset {
	return []Dataset{
		{Number: 1, DataPath: "doj/dataset-1/VOL00001/DATA/VOL00001", VolumeBase: "doj/dataset-1/VOL00001"},
		{Number: 2, DataPath: "doj/dataset-2/VOL00002/DATA/VOL00002", VolumeBase: "doj/dataset-2/VOL00002"},
		{Number: 3, DataPath: "doj/dataset-3/VOL00003/DATA/VOL00003", VolumeBase: "doj/dataset-3/VOL00003"},
		{Number: 4, DataPath: "doj/dataset-4/VOL00004/DATA/VOL00004", VolumeBase: "doj/dataset-4/VOL00004"},
		{Number: 5, DataPath: "doj/dataset-5/VOL00005/DATA/VOL00005", VolumeBase: "doj/dataset-5/VOL00005"},
		{Number: 6, DataPath: "doj/dataset-6/DataSet6/VOL00006/DATA/VOL00006", VolumeBase: "doj/dataset-6/DataSet6/VOL00006"},
		{Number: 7, DataPath: "doj/dataset-7/VOL00007/DATA/VOL00007", VolumeBase: "doj/dataset-7/VOL00007"},
		{Number: 8, DataPath: "doj/dataset-8/VOL00008/DATA/VOL00008", VolumeBase: "doj/dataset-8/VOL00008"},
		{Number: 9, DataPath: "doj/dataset-9/DataSet_9/DATA/VOL00009", VolumeBase: "doj/dataset-9/DataSet_9/VOL00009"},
		{Number: 10, DataPath: "doj/dataset-10/VOL00010/DATA/VOL00010", VolumeBase: "doj/dataset-10/VOL00010"},
		{Number: 11, DataPath: "doj/dataset-11/VOL00011/DATA/VOL00011", VolumeBase: "doj/dataset-11/VOL00011"},
		{Number: 12, DataPath: "doj/dataset-12/VOL00012/DATA/VOL00012", VolumeBase: "doj/dataset-12/VOL00012"},
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir: defaultCacheDir,
			LogDir:   defaultLogDir,
		},
		Remote: Remote{
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
			RPCTimeoutSeconds:     defaultRPCTimeoutSeconds,
			RPCName:               defaultRPCName,
		},
		Storage: Storage{
			Backend: defaultStorageBackend,
			Bucket:  defaultStorageBucket,
		},
		Metadata: Metadata{
			BeginColumn: defaultBeginColumn,
			EndColumn:   defaultEndColumn,
		},
		Update: Update{
			BatchSize:              defaultBatchSize,
			MaxConsecutiveFailures: defaultMaxConsecutiveFailures,
			BatchPauseMillis:       defaultBatchPauseMillis,
			FailurePauseMillis:     defaultFailurePauseMillis,
			ProgressEvery:          defaultProgressEvery,
		},
		Verify: Verify{
			SpotCheckLimit: defaultSpotCheckLimit,
		},
		Retry: Retry{
			Attempts:          defaultRetryAttempts,
			ServerErrorBaseMS: defaultServerErrorBaseMS,
			ServerErrorStepMS: defaultServerErrorStepMS,
			TimeoutWaitMS:     defaultTimeoutWaitMS,
		},
		Workers: Workers{
			Datasets: defaultDatasetWorkers,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Datasets: DefaultDatasets(),
	}
}
