package pipeline

// Stage identifiers shared by the built-in pipelines and the registry.
const (
	StageVersion = "version"
	StageChanges = "changes"
	StageCleanup = "cleanup"
	StageMatrix  = "matrix"
	StagePublish = "publish"
)

// ReleaseDefinition is the tag-triggered stable release graph. Version
// resolution gates everything: a tag/metadata mismatch fails before any
// platform build starts.
func ReleaseDefinition() Definition {
	return Definition{
		ID:   "release",
		Name: "Stable release",
		Stages: []StageRef{
			{StageID: StageVersion},
			{StageID: StageMatrix, DependsOn: []string{StageVersion}},
			{StageID: StagePublish, DependsOn: []string{StageMatrix}},
		},
	}
}

// NightlyDefinition is the scheduled prerelease graph. Change detection sits
// between version resolution and cleanup so an unchanged tree skips the whole
// build and publication.
func NightlyDefinition() Definition {
	return Definition{
		ID:   "nightly",
		Name: "Nightly prerelease",
		Stages: []StageRef{
			{StageID: StageVersion},
			{StageID: StageChanges, DependsOn: []string{StageVersion}},
			{StageID: StageCleanup, DependsOn: []string{StageChanges}},
			{StageID: StageMatrix, DependsOn: []string{StageCleanup}},
			{StageID: StagePublish, DependsOn: []string{StageMatrix}},
		},
	}
}
