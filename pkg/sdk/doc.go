// Package searchsync embeds the searchsync pipeline in a Go application:
// records are mirrored into a search engine as they change, and searches
// return live records in engine rank order.
//
// # Untyped API
//
//	posts, _ := searchsync.NewModel("posts", searchsync.ModelOptions{
//	    SoftDeleteColumn: "deleted_at",
//	    SearchableIf:     map[string]any{"status": "published"},
//	})
//	client, _ := searchsync.New(ctx,
//	    searchsync.WithBleve(""),
//	    searchsync.WithSQLite(db),
//	    searchsync.WithModels(posts),
//	)
//	_ = client.Sync().Created(ctx, searchsync.NewRow(posts, attrs))
//	q, _ := client.Search("posts").Query("zonda")
//	page, _ := client.Search("posts").Paginate(ctx, q.Where("status", "published").Build(), 15, 1)
//
// # Typed API with struct tags
//
//	type Post struct {
//	    ID        int64   `searchsync:"id,key"`
//	    Title     string  `searchsync:"title,text"`
//	    Status    string  `searchsync:"status,tag"`
//	    DeletedAt *string `searchsync:"deleted_at,soft_delete"`
//	}
//
//	posts, _ := searchsync.ModelOf[Post]("posts", searchsync.ModelOptions{})
//	typed, _ := searchsync.Bind[Post](client, posts)
//	_ = typed.Searchable(ctx, post)
//	hits, _ := typed.Search("zonda").Where("status", "published").Take(10).Do(ctx)
package searchsync
