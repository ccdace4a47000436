// Package scout provides a Go client for the scout sports chat API.
//
//	client, _ := scout.New("http://localhost:8080")
//	resp, err := client.Chat(ctx, "What NBA games happened yesterday?")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(resp.Answer)
//	for _, l := range resp.Links {
//	    fmt.Println(l.Title, l.URL)
//	}
package scout
