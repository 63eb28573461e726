// Demo walks the three matching disciplines through small worked
// examples and prints every trade, so the allocation behavior can be
// eyeballed without a running server.
package main

import (
	"fmt"

	"matchfabric/domain"
	"matchfabric/matching"
)

func main() {
	fifoDemo()
	proRataDemo()
	hybridDemo()
}

func fifoDemo() {
	fmt.Println("=== FIFO: strict price-time priority ===")
	book := matching.NewFIFOBook("BTCUSDT")

	submit(book, domain.NewOrder(7, "BTCUSDT", domain.SideSell, 101, 30))
	submit(book, domain.NewOrder(8, "BTCUSDT", domain.SideSell, 101, 40))
	submit(book, domain.NewOrder(9, "BTCUSDT", domain.SideSell, 101, 25))

	// Crosses all three asks in arrival order; id=9 keeps 15 units.
	submit(book, domain.NewOrder(10, "BTCUSDT", domain.SideBuy, 101, 80))

	printBook(book)
}

func proRataDemo() {
	fmt.Println("=== Pro-rata: proportional allocation at the best level ===")
	book := matching.NewProRataBook("ETHUSDT")

	submit(book, domain.NewOrder(11, "ETHUSDT", domain.SideSell, 50, 50))
	submit(book, domain.NewOrder(12, "ETHUSDT", domain.SideSell, 50, 150))

	// 100 units split 25/75 across the 50/150 resting sizes.
	submit(book, domain.NewOrder(13, "ETHUSDT", domain.SideBuy, 50, 100))

	printBook(book)
}

func hybridDemo() {
	fmt.Println("=== Hybrid: half FIFO, half pro-rata ===")
	book, err := matching.NewHybridBook("SOLUSDT", 0.5)
	if err != nil {
		panic(err)
	}

	submit(book, domain.NewOrder(14, "SOLUSDT", domain.SideSell, 75, 40))
	submit(book, domain.NewOrder(15, "SOLUSDT", domain.SideSell, 75, 60))
	submit(book, domain.NewOrder(16, "SOLUSDT", domain.SideSell, 75, 100))

	// FIFO phase takes 50 in time order, pro-rata splits the other 50
	// across the residual 50/100.
	submit(book, domain.NewOrder(17, "SOLUSDT", domain.SideBuy, 75, 100))

	printBook(book)
}

func submit(book matching.Book, order *domain.Order) {
	fmt.Printf("-> %s id=%d price=%d qty=%d\n", order.Side, order.ID, order.Price, order.Quantity)
	trades, err := book.MatchOrder(order)
	if err != nil {
		fmt.Printf("   rejected: %v\n", err)
		return
	}
	for _, t := range trades {
		fmt.Printf("   trade rank=%d buy=%d sell=%d price=%d qty=%d\n",
			t.Rank, t.BuyID, t.SellID, t.Price, t.Quantity)
	}
}

func printBook(book matching.Book) {
	if bid, ok := book.BestBid(); ok {
		fmt.Printf("best bid: id=%d price=%d remaining=%d\n", bid.ID, bid.Price, bid.Remaining())
	} else {
		fmt.Println("best bid: none")
	}
	if ask, ok := book.BestAsk(); ok {
		fmt.Printf("best ask: id=%d price=%d remaining=%d\n", ask.ID, ask.Price, ask.Remaining())
	} else {
		fmt.Println("best ask: none")
	}
	fmt.Printf("depth: %d bids / %d asks\n\n", book.BidDepth(), book.AskDepth())
}
