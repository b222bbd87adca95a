package editor

// Artifact is a file handed to the browser for download.
type Artifact struct {
	Filename    string
	ContentType string
	Body        []byte
}

const (
	DownloadFilename    = "website.html"
	DownloadContentType = "text/html"
)

// Download packages code as website.html.
func Download(code string) Artifact {
	return Artifact{
		Filename:    DownloadFilename,
		ContentType: DownloadContentType,
		Body:        []byte(code),
	}
}
