package store

import (
	"polysignal/internal/models"
)

// In-memory stores for tests and dry wiring. They satisfy the same
// interfaces as the file-backed stores.

type MemoryMarketStore struct {
	Markets []models.Market
}

func (s *MemoryMarketStore) Load() ([]models.Market, error) { return s.Markets, nil }
func (s *MemoryMarketStore) Save(markets []models.Market) error {
	s.Markets = markets
	return nil
}

type MemoryHeadlineStore struct {
	Headlines []models.Headline
}

func (s *MemoryHeadlineStore) Load() ([]models.Headline, error) { return s.Headlines, nil }
func (s *MemoryHeadlineStore) Save(headlines []models.Headline) error {
	s.Headlines = headlines
	return nil
}

type MemoryMatchStore struct {
	Matches []models.MatchResult
	Saves   int
}

func (s *MemoryMatchStore) Load() ([]models.MatchResult, error) { return s.Matches, nil }
func (s *MemoryMatchStore) Save(matches []models.MatchResult) error {
	s.Matches = matches
	s.Saves++
	return nil
}

type MemoryTradeStore struct {
	Log   TradeLog
	Saves int
}

func (s *MemoryTradeStore) Load() (TradeLog, error) { return s.Log, nil }
func (s *MemoryTradeStore) Save(log TradeLog) error {
	s.Log = log
	s.Saves++
	return nil
}

type MemoryVectorStore struct {
	Set   VectorSet
	Saves int
}

func (s *MemoryVectorStore) Load() (VectorSet, error) { return s.Set, nil }
func (s *MemoryVectorStore) Save(set VectorSet) error {
	s.Set = set
	s.Saves++
	return nil
}
