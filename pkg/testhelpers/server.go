package testhelpers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"

	"github.com/pluqqy/pdfdeck/pkg/models"
	"github.com/pluqqy/pdfdeck/pkg/remote"
)

// NewServer serves the document service HTTP contract on top of fake.
// The caller must Close the returned server.
func NewServer(fake *FakeService) *httptest.Server {
	return httptest.NewServer(Handler(fake))
}

// Handler returns the HTTP handler without starting a server
func Handler(fake *FakeService) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/upload", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "missing file field")
			return
		}
		defer file.Close()
		result, err := fake.Upload(r.Context(), header.Filename, file)
		respond(w, result, err)
	})

	mux.HandleFunc("GET /api/pdf/{id}", func(w http.ResponseWriter, r *http.Request) {
		data, err := fake.Fetch(r.Context(), r.PathValue("id"))
		respondBytes(w, data, err)
	})

	mux.HandleFunc("GET /api/pdf/{id}/download", func(w http.ResponseWriter, r *http.Request) {
		data, err := fake.Download(r.Context(), r.PathValue("id"))
		respondBytes(w, data, err)
	})

	mux.HandleFunc("GET /api/pdf/{id}/info", func(w http.ResponseWriter, r *http.Request) {
		info, err := fake.Info(r.Context(), r.PathValue("id"))
		respond(w, info, err)
	})

	mux.HandleFunc("POST /api/pdf/{id}/pages/add-range", func(w http.ResponseWriter, r *http.Request) {
		var body models.AddRangeRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		count, err := fake.AddRange(r.Context(), r.PathValue("id"), body)
		respond(w, models.PageCountResult{Status: "success", PageCount: count}, err)
	})

	mux.HandleFunc("POST /api/pdf/{id}/pages/reorder", func(w http.ResponseWriter, r *http.Request) {
		var body models.ReorderRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		err := fake.Reorder(r.Context(), r.PathValue("id"), body.From, body.To)
		respond(w, map[string]string{"status": "success"}, err)
	})

	mux.HandleFunc("DELETE /api/pdf/{id}/pages/{index}", func(w http.ResponseWriter, r *http.Request) {
		index, err := strconv.Atoi(r.PathValue("index"))
		if err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "page index must be an integer")
			return
		}
		count, err := fake.DeletePage(r.Context(), r.PathValue("id"), index)
		respond(w, models.PageCountResult{Status: "success", PageCount: count}, err)
	})

	mux.HandleFunc("POST /api/pdf/{id}/undo", func(w http.ResponseWriter, r *http.Request) {
		count, err := fake.Undo(r.Context(), r.PathValue("id"))
		respond(w, models.PageCountResult{Status: "success", PageCount: count}, err)
	})

	mux.HandleFunc("GET /api/pdf/{id}/undo/status", func(w http.ResponseWriter, r *http.Request) {
		status, err := fake.UndoStatus(r.Context(), r.PathValue("id"))
		respond(w, status, err)
	})

	return mux
}

func respond(w http.ResponseWriter, body interface{}, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func respondBytes(w http.ResponseWriter, data []byte, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, err error) {
	var netErr *remote.NetworkError
	if errors.As(err, &netErr) && netErr.Status != 0 {
		writeDetail(w, netErr.Status, netErr.Detail)
		return
	}
	writeDetail(w, http.StatusInternalServerError, err.Error())
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(models.ErrorBody{Detail: detail})
}
