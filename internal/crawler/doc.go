// Package crawler walks seed URLs and the pages they link to, looking for
// sensitive resources that are exposed over HTTP.
//
// # Components
//
//   - Scheduler: drives one branch per seed, decides for every discovered URL
//     whether it is rejected, reported, ignored, a duplicate, or fetched
//   - Fetcher: performs the GET request (HTTPFetcher in production)
//   - LinkExtractor: pulls <a href> targets out of HTML (Parser in production)
//
// A sensitive URL is reported from its name alone and is never requested.
// Links are only followed from pages at or above the link depth (the seed
// pages by default), and every child subtree is bounded by the request
// timeout so one slow host cannot stall its parent.
//
// # Usage
//
//	s := crawler.NewScheduler(crawler.Dependencies{
//		Normalizer: target.NewNormalizer(),
//		Classifier: cls,
//		Dedup:      dedup.New(),
//		Gate:       g,
//		Fetcher:    crawler.NewHTTPFetcher(),
//		Links:      crawler.NewParser(),
//		Aggregator: findings.New(),
//		Shutdown:   shutdown.New(),
//	}, crawler.WithMaxDepth(3))
//	err := s.Run(ctx, seeds)
package crawler
