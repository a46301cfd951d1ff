package server

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
)

const maxUploadSize = 50 * 1024 * 1024 // 50MB scans

type jobView struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Filename string `json:"filename"`
	Error    string `json:"error,omitempty"`
	MIDI     string `json:"midi,omitempty"`
	MP3      string `json:"mp3,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleConvert accepts a multipart upload of a sheet-music document and
// starts an asynchronous conversion job.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "invalid upload", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	job, err := s.jobs.Create(header.Filename, file)
	if err != nil {
		s.logger.Error("create job failed", "error", err)
		http.Error(w, "could not store upload", http.StatusInternalServerError)
		return
	}

	go s.jobs.Process(job)

	writeJSON(w, http.StatusAccepted, jobView{ID: job.ID, Status: string(job.Status), Filename: job.Filename})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job := s.jobs.Get(chi.URLParam(r, "id"))
	if job == nil {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}

	view := jobView{ID: job.ID, Status: string(job.Status), Filename: job.Filename, Error: job.Error}
	if job.Status == StatusComplete && job.Result != nil {
		view.MIDI = "/download/" + job.ID + "/midi"
		view.MP3 = "/download/" + job.ID + "/mp3"
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDownloadMIDI(w http.ResponseWriter, r *http.Request) {
	s.serveArtifact(w, r, func(j *Job) string { return j.Result.MIDIPath })
}

func (s *Server) handleDownloadMP3(w http.ResponseWriter, r *http.Request) {
	s.serveArtifact(w, r, func(j *Job) string { return j.Result.MP3Path })
}

func (s *Server) serveArtifact(w http.ResponseWriter, r *http.Request, path func(*Job) string) {
	job := s.jobs.Get(chi.URLParam(r, "id"))
	if job == nil || job.Status != StatusComplete || job.Result == nil {
		http.Error(w, "artifact not available", http.StatusNotFound)
		return
	}
	p := path(job)
	if _, err := os.Stat(p); err != nil {
		http.Error(w, "artifact not available", http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, p)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
