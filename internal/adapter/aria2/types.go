package aria2

import (
	"path"
	"strconv"

	"github.com/cwygoda/fetchd/internal/domain"
)

// aria2 serializes numeric fields as decimal strings.

type statusPayload struct {
	GID             string `json:"gid"`
	Status          string `json:"status"`
	TotalLength     string `json:"totalLength"`
	CompletedLength string `json:"completedLength"`
	DownloadSpeed   string `json:"downloadSpeed"`
	ErrorMessage    string `json:"errorMessage"`
	BitTorrent      *struct {
		Info struct {
			Name string `json:"name"`
		} `json:"info"`
	} `json:"bittorrent"`
	Files []struct {
		Path string `json:"path"`
	} `json:"files"`
}

type globalStatPayload struct {
	NumActive     string `json:"numActive"`
	NumWaiting    string `json:"numWaiting"`
	NumStopped    string `json:"numStopped"`
	DownloadSpeed string `json:"downloadSpeed"`
	UploadSpeed   string `json:"uploadSpeed"`
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func (p *statusPayload) toDomain() domain.DownloadStatus {
	st := domain.DownloadStatus{
		GID:            p.GID,
		Status:         p.Status,
		TotalBytes:     parseInt(p.TotalLength),
		CompletedBytes: parseInt(p.CompletedLength),
		Speed:          parseInt(p.DownloadSpeed),
		ErrorMessage:   p.ErrorMessage,
	}
	// Torrents report their real name in the metadata; plain downloads
	// expose it through the first file path.
	if p.BitTorrent != nil && p.BitTorrent.Info.Name != "" {
		st.Name = p.BitTorrent.Info.Name
	} else if len(p.Files) > 0 && p.Files[0].Path != "" {
		st.Name = path.Base(p.Files[0].Path)
	}
	return st
}

func (p *globalStatPayload) toDomain() domain.GlobalStat {
	return domain.GlobalStat{
		NumActive:     parseInt(p.NumActive),
		NumWaiting:    parseInt(p.NumWaiting),
		NumStopped:    parseInt(p.NumStopped),
		DownloadSpeed: parseInt(p.DownloadSpeed),
		UploadSpeed:   parseInt(p.UploadSpeed),
	}
}
