package steps

// fieldAlias maps one canonical key to the older spellings it replaces.
type fieldAlias struct {
	canonical string
	aliases   []string
}

// documentAliases is consulted in order for the document and for every run.
// Keys that only exist on one level are simply absent on the other.
var documentAliases = []fieldAlias{
	{canonical: "analysisTemplate", aliases: []string{"analysis_template"}},
	{canonical: "manifestPath", aliases: []string{"manifest_path"}},
	{canonical: "manifestUrl", aliases: []string{"manifest_url"}},
	{canonical: "searchUploads", aliases: []string{"search_uploads"}},
	{canonical: "storageArtifacts", aliases: []string{"storage_artifacts"}},
	{canonical: "analysisOutputPath", aliases: []string{"analysis_output_path"}},
	{canonical: "lastRunAt", aliases: []string{"last_run_at"}},
	{canonical: "activeRunId", aliases: []string{"active_run_id"}},
	{canonical: "createdAt", aliases: []string{"created_at"}},
	{canonical: "requestedAt", aliases: []string{"requested_at"}},
	{canonical: "completedAt", aliases: []string{"completed_at"}},
	{canonical: "videoUrl", aliases: []string{"video_url"}},
	{canonical: "storageUrl", aliases: []string{"storage_url"}},
	{canonical: "schemaVersion", aliases: []string{"schema_version"}},
}

var filterAliases = []fieldAlias{
	{canonical: "organizationId", aliases: []string{"organization_id", "organization"}},
	{canonical: "collectionId", aliases: []string{"collection_id", "collection"}},
	{canonical: "contentId", aliases: []string{"content_id", "video_id", "videoId"}},
}

// resolveAliases moves aliased values onto their canonical key in place. A
// canonical key already present wins and the alias is dropped. It reports
// whether obj was rewritten.
func resolveAliases(obj map[string]any, table []fieldAlias) bool {
	changed := false
	for _, fa := range table {
		_, hasCanonical := obj[fa.canonical]
		for _, alias := range fa.aliases {
			v, ok := obj[alias]
			if !ok {
				continue
			}
			if !hasCanonical {
				obj[fa.canonical] = v
				hasCanonical = true
			}
			delete(obj, alias)
			changed = true
		}
	}
	return changed
}
