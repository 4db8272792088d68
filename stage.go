package volley

// Stage identifies the current phase of a session.
type Stage uint8

// Pipeline stages. Upload runs Archiving through WritingManifest; download
// runs ReadingManifest through Extracting. Both end with CleaningUp.
const (
	StageIdle Stage = iota

	// StageArchiving indicates the source directory is being zipped.
	StageArchiving

	// StagePartitioning indicates the archive is being split into parts.
	StagePartitioning

	// StageUploading indicates parts are being transferred to the endpoint.
	StageUploading

	// StageWritingManifest indicates the manifest is being persisted.
	StageWritingManifest

	// StageReadingManifest indicates the manifest is being loaded.
	StageReadingManifest

	// StageDownloading indicates parts are being fetched by reference.
	StageDownloading

	// StageMerging indicates parts are being concatenated in index order.
	StageMerging

	// StageExtracting indicates the merged archive is being unpacked.
	StageExtracting

	// StageCleaningUp indicates intermediate artifacts are being removed.
	StageCleaningUp

	// StageDone indicates the session completed.
	StageDone
)

// String returns the string representation of the stage.
func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageArchiving:
		return "archiving"
	case StagePartitioning:
		return "partitioning"
	case StageUploading:
		return "uploading"
	case StageWritingManifest:
		return "writing manifest"
	case StageReadingManifest:
		return "reading manifest"
	case StageDownloading:
		return "downloading"
	case StageMerging:
		return "merging"
	case StageExtracting:
		return "extracting"
	case StageCleaningUp:
		return "cleaning up"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}
