package detector

const (
	// StatusPresent marks a match for a rule without a version extractor.
	StatusPresent = "present"
	// StatusVersionHidden marks a match whose extractor found no version.
	StatusVersionHidden = "present (version hidden)"
)

func versionStatus(version string) string {
	if version == "" {
		return StatusVersionHidden
	}
	return version
}
