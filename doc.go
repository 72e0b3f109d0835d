// Package docdex provides keyword retrieval over ingested documents with
// optional chat-model answering, persisted as plain JSON files on disk.
//
// Documents are chunked, indexed into an inverted index, and scored with
// TF-IDF, exact-phrase boosts, and a recency factor. The same engine backs
// the docdex HTTP server (cmd/docdex); this package embeds it in-process.
//
//	client, _ := docdex.New(docdex.WithDataDir("data"))
//	defer client.Close()
//
//	client.Add(ctx, []string{"backups run nightly at 2am"},
//	    []map[string]any{{"source": "runbook.md"}})
//
//	for _, hit := range client.Search(ctx, "when do backups run?", 5) {
//	    fmt.Println(hit.Score, hit.Text)
//	}
//
// With a chat model configured, Ask retrieves context and generates a
// grounded answer with source citations:
//
//	answer := client.Ask(ctx, "when do backups run?", "thread-1")
//	fmt.Println(answer.Text, answer.Sources)
package docdex
