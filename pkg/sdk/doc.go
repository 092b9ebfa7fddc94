// Package portalsearch embeds the map portal search aggregation engine in a Go
// program, without the HTTP service around it.
//
// A Client fans a search string out to its providers, collects their hits and
// ranks them into a short recommended list plus per-type groups:
//
//	client, _ := portalsearch.New(ctx,
//	    portalsearch.WithPhoton("https://photon.komoot.io", "de"),
//	    portalsearch.WithTopicCatalog("services.yaml"),
//	    portalsearch.WithResultOrder("Adresse", "Thema"),
//	)
//	defer client.Close()
//	res, _ := client.Search(ctx, "spielplatz")
//	for _, h := range res.Recommended {
//	    fmt.Println(h.Name, client.Label(h.Type, "de"))
//	}
//
// # Sessions
//
// Search bars that keep typing use a Session. Every SetQuery supersedes the
// previous search; hits of the old query are dropped when they arrive late.
//
//	s, _ := client.Open(ctx, "")
//	events, stop := s.Events()
//	defer stop()
//	_ = s.SetQuery(ctx, "hafen")
//	for e := range events {
//	    if e.Kind == portalsearch.EventRecommendedListChanged {
//	        render(e.Recommended)
//	    }
//	}
package portalsearch
