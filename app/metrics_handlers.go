package app

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// MetricsHandler serves the NDJSON log files written under the storage
// directory back as JSON arrays.
type MetricsHandler struct {
	storageDir string
}

func NewMetricsHandler(storageDir string) *MetricsHandler {
	return &MetricsHandler{storageDir: storageDir}
}

// GetMetrics serves storage/metrics.log.
func (h *MetricsHandler) GetMetrics(c *gin.Context) {
	h.serveLogFile(c, "metrics.log")
}

// GetErrors serves storage/errors.log.
func (h *MetricsHandler) GetErrors(c *gin.Context) {
	h.serveLogFile(c, "errors.log")
}

// GetWarnings serves storage/warnings.log.
func (h *MetricsHandler) GetWarnings(c *gin.Context) {
	h.serveLogFile(c, "warnings.log")
}

func (h *MetricsHandler) serveLogFile(c *gin.Context, name string) {
	entries, err := readLogFile(filepath.Join(h.storageDir, name))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// readLogFile parses an NDJSON file: one JSON object per line, blank lines
// skipped, any malformed line fails the whole read.
func readLogFile(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("Erreur lors de la lecture du fichier : %v", err)
	}
	defer f.Close()

	entries := []json.RawMessage{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !json.Valid([]byte(line)) {
			return nil, fmt.Errorf("Erreur lors de la lecture du fichier : ligne JSON invalide")
		}
		entries = append(entries, json.RawMessage(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("Erreur lors de la lecture du fichier : %v", err)
	}
	return entries, nil
}
