package handlers

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"

	"detection-stream/logger"
	"detection-stream/store"
	"detection-stream/uploads"
)

const maxMemory = 32 << 20

const (
	msgFileRequired = "File: This field is required."
	msgCSRFMissing  = "The CSRF token is missing."
	msgCSRFInvalid  = "The CSRF token is invalid."
	msgSaveFailed   = "The file could not be saved. Please try again."
)

type HomeHTTPHandler struct {
	sessions      *store.Manager
	webcamEnabled bool
	logger        logger.Logger
}

func NewHomeHTTPHandler(sessions *store.Manager, webcamEnabled bool, logger logger.Logger) *HomeHTTPHandler {
	return &HomeHTTPHandler{
		sessions:      sessions,
		webcamEnabled: webcamEnabled,
		logger:        logger,
	}
}

func (h *HomeHTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Session(w, r)
	if err := sess.Clear(); err != nil {
		h.logger.Errorf("Error clearing session %s: %v", sess.ID(), err)
	}

	render(w, h.logger, http.StatusOK, "index.html", struct {
		WebcamEnabled bool
	}{h.webcamEnabled})
}

type uploadPage struct {
	WebcamEnabled bool
	CSRFEnabled   bool
	CSRFToken     string
	Errors        []string
	Uploaded      bool
	Filename      string
}

type UploadHTTPHandler struct {
	sessions      *store.Manager
	saver         *uploads.Saver
	csrf          bool
	webcamEnabled bool
	logger        logger.Logger
}

func NewUploadHTTPHandler(sessions *store.Manager, saver *uploads.Saver, csrf, webcamEnabled bool, logger logger.Logger) *UploadHTTPHandler {
	return &UploadHTTPHandler{
		sessions:      sessions,
		saver:         saver,
		csrf:          csrf,
		webcamEnabled: webcamEnabled,
		logger:        logger,
	}
}

func (h *UploadHTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Session(w, r)
	page := uploadPage{
		WebcamEnabled: h.webcamEnabled,
		CSRFEnabled:   h.csrf,
		CSRFToken:     h.sessions.CSRFToken(sess),
	}

	status := http.StatusOK
	if r.Method == http.MethodPost {
		status = h.handleUpload(r, sess, &page)
	}

	render(w, h.logger, status, "upload.html", page)
}

// handleUpload validates the form and stores the file. Validation problems
// are reported on the page, never as an error status.
func (h *UploadHTTPHandler) handleUpload(r *http.Request, sess store.Session, page *uploadPage) int {
	err := r.ParseMultipartForm(maxMemory)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.logger.Warnf("Malformed upload from %s: %v", r.RemoteAddr, err)
		page.Errors = append(page.Errors, msgFileRequired)
		return http.StatusOK
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	if h.csrf {
		token := r.FormValue("csrf_token")
		switch {
		case token == "":
			page.Errors = append(page.Errors, msgCSRFMissing)
		case !h.sessions.ValidCSRF(sess, token):
			page.Errors = append(page.Errors, msgCSRFInvalid)
		}
	}

	_, fh, err := r.FormFile("file")
	if err != nil {
		page.Errors = append(page.Errors, msgFileRequired)
	}
	if len(page.Errors) > 0 {
		return http.StatusOK
	}

	path, err := h.saver.Save(fh)
	if errors.Is(err, uploads.ErrMissingFile) {
		page.Errors = append(page.Errors, msgFileRequired)
		return http.StatusOK
	}
	if err != nil {
		h.logger.Errorf("Error saving upload %q: %v", fh.Filename, err)
		page.Errors = append(page.Errors, msgSaveFailed)
		return http.StatusInternalServerError
	}

	if err := sess.Set(store.KeyVideoPath, path); err != nil {
		h.logger.Errorf("Error storing video path for session %s: %v", sess.ID(), err)
		page.Errors = append(page.Errors, msgSaveFailed)
		return http.StatusInternalServerError
	}

	h.logger.Logf("Saved upload %q to %s (%d bytes)", fh.Filename, path, fh.Size)
	page.Uploaded = true
	page.Filename = filepath.Base(path)
	return http.StatusOK
}

type WebcamPageHTTPHandler struct {
	enabled bool
	logger  logger.Logger
}

func NewWebcamPageHTTPHandler(enabled bool, logger logger.Logger) *WebcamPageHTTPHandler {
	return &WebcamPageHTTPHandler{enabled: enabled, logger: logger}
}

func (h *WebcamPageHTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.enabled {
		http.NotFound(w, r)
		return
	}

	render(w, h.logger, http.StatusOK, "webcam.html", struct {
		Index int
	}{cameraIndex(r)})
}

// cameraIndex reads the optional ?index= parameter. Anything that is not an
// integer selects camera 0.
func cameraIndex(r *http.Request) int {
	i, err := strconv.Atoi(r.URL.Query().Get("index"))
	if err != nil {
		return 0
	}
	return i
}
