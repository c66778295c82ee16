package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"resume-rag/internal/helper"
	"resume-rag/internal/models"
	"resume-rag/internal/parser"
)

type finalizeRequest struct {
	TempCollectionName      string `json:"temp_collection_name" binding:"required"`
	PermanentCollectionName string `json:"permanent_collection_name" binding:"required"`
	ProviderName            string `json:"provider_name"`
	APIKey                  string `json:"api_key"`
}

type addRequest struct {
	CollectionName string `json:"collection_name" binding:"required"`
	Text           string `json:"text" binding:"required"`
	ProviderName   string `json:"provider_name"`
	APIKey         string `json:"api_key"`
}

type chatRequest struct {
	CollectionName string `json:"collection_name" binding:"required"`
	Query          string `json:"query" binding:"required"`
	ProviderName   string `json:"provider_name"`
	APIKey         string `json:"api_key"`
}

type resetRequest struct {
	CollectionName string `json:"collection_name" binding:"required"`
}

type chatResponse struct {
	Answer string               `json:"answer"`
	Memory models.MemorySummary `json:"memory"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.registry.Len()})
}

// buildBot indexes a resume into a fresh temp-<uuid> collection. The
// structured parsedData form field wins; without it the uploaded file's
// text is used.
func (s *Server) buildBot(c *gin.Context) {
	fh, err := c.FormFile("resumeFile")
	if err != nil {
		abortBadRequest(c, "No resume file provided")
		return
	}

	var parsed models.ResumeSections
	if raw := c.PostForm("parsedData"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			abortBadRequest(c, "parsedData must be a JSON object of resume sections")
			return
		}
	}
	enrichments := map[string]string{}
	if raw := c.PostForm("enrichments"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &enrichments); err != nil {
			abortBadRequest(c, "enrichments must be a JSON object of strings")
			return
		}
	}

	var text string
	if len(parsed) > 0 {
		text = parser.ResumeText(parsed, enrichments)
	} else {
		f, err := fh.Open()
		if err != nil {
			abortBadRequest(c, "Could not read resume file")
			return
		}
		defer f.Close()
		err = parser.WithTempFile(s.opts.UploadDir, strings.ToLower(filepath.Ext(fh.Filename)), f, func(path string) error {
			text, err = parser.LoadText(path)
			return err
		})
		if err != nil {
			abortWithError(c, err)
			return
		}
	}

	chunks, err := parser.Chunk(text, s.opts.ChunkSize, s.opts.ChunkOverlap)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if len(chunks) == 0 {
		abortBadRequest(c, "Resume contains no text")
		return
	}

	name, err := helper.TempCollectionName()
	if err != nil {
		abortWithError(c, err)
		return
	}
	ctx := c.Request.Context()
	sess, err := s.session(ctx, name, c.PostForm("provider_name"), c.PostForm("api_key"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if err := sess.IndexChunks(ctx, chunks); err != nil {
		s.discard(c, name)
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "Temporary bot built successfully",
		"collection_name": name,
		"chunks":          len(chunks),
	})
}

// discard drops a collection whose build failed so no empty temp collection
// is left behind.
func (s *Server) discard(c *gin.Context, name string) {
	s.registry.Delete(name)
	if err := s.opts.Store.Delete(c.Request.Context(), name); err != nil {
		log.Warn().Err(err).Str("collection", name).Msg("Failed to drop collection after failed build")
	}
}

func (s *Server) finalizeCollection(c *gin.Context) {
	var req finalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "Missing source or target collection name")
		return
	}
	ctx := c.Request.Context()
	if err := s.requireCollection(ctx, req.TempCollectionName); err != nil {
		abortWithError(c, err)
		return
	}
	sess, err := s.session(ctx, req.TempCollectionName, req.ProviderName, req.APIKey)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if err := sess.RenameCollection(ctx, req.PermanentCollectionName); err != nil {
		abortWithError(c, err)
		return
	}
	s.registry.Move(req.TempCollectionName, req.PermanentCollectionName)

	c.JSON(http.StatusOK, gin.H{
		"message":             "Collection finalized",
		"new_collection_name": req.PermanentCollectionName,
	})
}

func (s *Server) addToBot(c *gin.Context) {
	var req addRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "Missing collection_name or text")
		return
	}
	ctx := c.Request.Context()
	if err := s.requireCollection(ctx, req.CollectionName); err != nil {
		abortWithError(c, err)
		return
	}
	chunks, err := parser.Chunk(req.Text, s.opts.ChunkSize, s.opts.ChunkOverlap)
	if err != nil {
		abortWithError(c, err)
		return
	}
	sess, err := s.session(ctx, req.CollectionName, req.ProviderName, req.APIKey)
	if err != nil {
		abortWithError(c, err)
		return
	}
	n, err := sess.AddChunks(ctx, chunks)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Successfully added %d new documents.", n),
		"added":   n,
	})
}

func (s *Server) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "Missing collection_name or query")
		return
	}
	ctx := c.Request.Context()
	if err := s.requireCollection(ctx, req.CollectionName); err != nil {
		abortWithError(c, err)
		return
	}
	sess, err := s.session(ctx, req.CollectionName, req.ProviderName, req.APIKey)
	if err != nil {
		abortWithError(c, err)
		return
	}
	answer, err := sess.Answer(ctx, req.Query)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, chatResponse{Answer: answer, Memory: sess.MemorySummary()})
}

func (s *Server) resetChat(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "Missing collection_name")
		return
	}
	if sess, ok := s.registry.Lookup(req.CollectionName); ok {
		sess.ClearMemory()
	}
	c.JSON(http.StatusOK, gin.H{"message": "Conversation memory cleared"})
}

func (s *Server) chatMemory(c *gin.Context) {
	name := c.Param("collection")
	sess, ok := s.registry.Lookup(name)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"memory": models.MemorySummary{}, "history": []models.Turn{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"memory": sess.MemorySummary(), "history": sess.History()})
}
