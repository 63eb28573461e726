package matching

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"matchfabric/domain"
)

func TestRanksStrictlyIncreaseInProgramOrder(t *testing.T) {
	book := NewFIFOBook("BTCUSDT")

	_, err := book.MatchOrder(domain.NewOrder(1, "BTCUSDT", domain.SideBuy, 100, 10))
	require.NoError(t, err)

	t1, err := book.MatchOrder(domain.NewOrder(2, "BTCUSDT", domain.SideSell, 100, 5))
	require.NoError(t, err)
	require.Len(t, t1, 1)

	t2, err := book.MatchOrder(domain.NewOrder(3, "BTCUSDT", domain.SideSell, 100, 8))
	require.NoError(t, err)
	require.Len(t, t2, 1)

	require.Less(t, t1[0].Rank, t2[0].Rank)
}

func TestRanksUniqueAcrossBooks(t *testing.T) {
	book1 := NewFIFOBook("BTCUSDT")
	book2 := NewFIFOBook("ETHUSDT")

	_, err := book1.MatchOrder(domain.NewOrder(1, "BTCUSDT", domain.SideBuy, 100, 10))
	require.NoError(t, err)
	_, err = book2.MatchOrder(domain.NewOrder(2, "ETHUSDT", domain.SideBuy, 100, 10))
	require.NoError(t, err)

	t1, err := book1.MatchOrder(domain.NewOrder(3, "BTCUSDT", domain.SideSell, 100, 10))
	require.NoError(t, err)
	t2, err := book2.MatchOrder(domain.NewOrder(4, "ETHUSDT", domain.SideSell, 100, 10))
	require.NoError(t, err)

	require.Len(t, t1, 1)
	require.Len(t, t2, 1)
	require.NotEqual(t, t1[0].Rank, t2[0].Rank)
}

func TestRanksUniqueUnderConcurrentMatching(t *testing.T) {
	const (
		books         = 8
		tradesPerBook = 1000
	)

	var wg sync.WaitGroup
	results := make([][]domain.Trade, books)

	for b := 0; b < books; b++ {
		b := b
		wg.Add(1)
		go func() {
			defer wg.Done()
			book := NewFIFOBook("SYM")
			var out []domain.Trade
			for i := 0; i < tradesPerBook; i++ {
				_, err := book.MatchOrder(domain.NewOrder(uint64(2*i+1), "SYM", domain.SideBuy, 100, 1))
				if err != nil {
					t.Error(err)
					return
				}
				trades, err := book.MatchOrder(domain.NewOrder(uint64(2*i+2), "SYM", domain.SideSell, 100, 1))
				if err != nil {
					t.Error(err)
					return
				}
				out = append(out, trades...)
			}
			results[b] = out
		}()
	}
	wg.Wait()

	seen := make(map[uint64]bool)
	for b := 0; b < books; b++ {
		require.Len(t, results[b], tradesPerBook)
		var last uint64
		for _, tr := range results[b] {
			require.False(t, seen[tr.Rank], "rank %d issued twice", tr.Rank)
			seen[tr.Rank] = true
			// Per-book program order is preserved.
			require.Greater(t, tr.Rank, last)
			last = tr.Rank
		}
	}
}

func TestTradeCountAndReset(t *testing.T) {
	ResetRanks()
	require.Equal(t, uint64(0), TradeCount())

	book := NewFIFOBook("BTCUSDT")
	_, err := book.MatchOrder(domain.NewOrder(1, "BTCUSDT", domain.SideBuy, 100, 10))
	require.NoError(t, err)
	trades, err := book.MatchOrder(domain.NewOrder(2, "BTCUSDT", domain.SideSell, 100, 10))
	require.NoError(t, err)
	require.Len(t, trades, 1)

	require.Equal(t, uint64(1), TradeCount())
	require.Equal(t, uint64(1), trades[0].Rank)

	ResetRanks()
	require.Equal(t, uint64(0), TradeCount())
}
