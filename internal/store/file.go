package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"polysignal/internal/models"
)

const (
	marketsFilename   = "markets.json"
	headlinesFilename = "headlines.json"
	matchLogFilename  = "match_log.json"
	tradesFilename    = "paper_trades.json"
	vectorsFilename   = "market_embeddings.json"
)

// Files bundles the file-backed stores rooted at one data directory.
type Files struct {
	Markets   MarketStore
	Headlines HeadlineStore
	Matches   MatchStore
	Trades    TradeStore
	Vectors   VectorStore
}

func NewFiles(dir string) Files {
	return Files{
		Markets:   &FileMarketStore{Path: filepath.Join(dir, marketsFilename)},
		Headlines: &FileHeadlineStore{Path: filepath.Join(dir, headlinesFilename)},
		Matches:   &FileMatchStore{Path: filepath.Join(dir, matchLogFilename)},
		Trades:    &FileTradeStore{Path: filepath.Join(dir, tradesFilename)},
		Vectors:   &FileVectorStore{Path: filepath.Join(dir, vectorsFilename)},
	}
}

func readDocument(path string, out any) (bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

func writeDocument(path string, doc any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

type marketDocument struct {
	UpdatedAt time.Time       `json:"updated_at"`
	Count     int             `json:"count"`
	Markets   []models.Market `json:"markets"`
}

type FileMarketStore struct {
	Path string
}

func (s *FileMarketStore) Load() ([]models.Market, error) {
	var doc marketDocument
	if _, err := readDocument(s.Path, &doc); err != nil {
		return nil, err
	}
	return doc.Markets, nil
}

func (s *FileMarketStore) Save(markets []models.Market) error {
	return writeDocument(s.Path, marketDocument{
		UpdatedAt: time.Now().UTC(),
		Count:     len(markets),
		Markets:   markets,
	})
}

type headlineDocument struct {
	UpdatedAt time.Time         `json:"updated_at"`
	Count     int               `json:"count"`
	Headlines []models.Headline `json:"headlines"`
}

type FileHeadlineStore struct {
	Path string
}

func (s *FileHeadlineStore) Load() ([]models.Headline, error) {
	var doc headlineDocument
	if _, err := readDocument(s.Path, &doc); err != nil {
		return nil, err
	}
	return doc.Headlines, nil
}

func (s *FileHeadlineStore) Save(headlines []models.Headline) error {
	return writeDocument(s.Path, headlineDocument{
		UpdatedAt: time.Now().UTC(),
		Count:     len(headlines),
		Headlines: headlines,
	})
}

type matchDocument struct {
	RunAt   time.Time            `json:"run_at"`
	Count   int                  `json:"count"`
	Matches []models.MatchResult `json:"matches"`
}

type FileMatchStore struct {
	Path string
}

func (s *FileMatchStore) Load() ([]models.MatchResult, error) {
	var doc matchDocument
	if _, err := readDocument(s.Path, &doc); err != nil {
		return nil, err
	}
	return doc.Matches, nil
}

func (s *FileMatchStore) Save(matches []models.MatchResult) error {
	return writeDocument(s.Path, matchDocument{
		RunAt:   time.Now().UTC(),
		Count:   len(matches),
		Matches: matches,
	})
}

type tradeDocument struct {
	UpdatedAt     time.Time             `json:"updated_at"`
	Count         int                   `json:"count"`
	Trades        []models.Trade        `json:"trades"`
	SkippedCount  int                   `json:"skipped_count"`
	SkippedTrades []models.SkippedEntry `json:"skipped_trades"`
}

type FileTradeStore struct {
	Path string
}

func (s *FileTradeStore) Load() (TradeLog, error) {
	var doc tradeDocument
	if _, err := readDocument(s.Path, &doc); err != nil {
		return TradeLog{}, err
	}
	return TradeLog{Trades: doc.Trades, Skipped: doc.SkippedTrades}, nil
}

func (s *FileTradeStore) Save(log TradeLog) error {
	return writeDocument(s.Path, tradeDocument{
		UpdatedAt:     time.Now().UTC(),
		Count:         len(log.Trades),
		Trades:        log.Trades,
		SkippedCount:  len(log.Skipped),
		SkippedTrades: log.Skipped,
	})
}

type vectorDocument struct {
	UpdatedAt time.Time     `json:"updated_at"`
	Model     string        `json:"model,omitempty"`
	Count     int           `json:"count"`
	Entries   []VectorEntry `json:"entries"`
}

type FileVectorStore struct {
	Path string
}

func (s *FileVectorStore) Load() (VectorSet, error) {
	var doc vectorDocument
	if _, err := readDocument(s.Path, &doc); err != nil {
		return VectorSet{}, err
	}
	return VectorSet{Model: doc.Model, Entries: doc.Entries}, nil
}

func (s *FileVectorStore) Save(set VectorSet) error {
	return writeDocument(s.Path, vectorDocument{
		UpdatedAt: time.Now().UTC(),
		Model:     set.Model,
		Count:     len(set.Entries),
		Entries:   set.Entries,
	})
}
