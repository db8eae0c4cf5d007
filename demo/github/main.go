package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/graphbind-io/graphbind/pkg/bind"
	"github.com/graphbind-io/graphbind/pkg/client"
	"github.com/graphbind-io/graphbind/pkg/config"
	"github.com/graphbind-io/graphbind/pkg/operation"
)

var viewerQuery = operation.MustParse(`
	query getViewer {
		viewer {
			login
			repositories(first: 5, orderBy: {field: PUSHED_AT, direction: DESC}) {
				nodes { nameWithOwner stargazerCount }
			}
		}
	}
`)

var starMutation = operation.MustParse(`
	mutation addStar($starrableId: ID!) {
		addStar(input: {starrableId: $starrableId}) {
			starrable { stargazerCount }
		}
	}
`)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env file not loaded:", err)
	}

	loader := config.NewDefaultLoader()
	cfg, err := loader.Load("demo/github/github.yaml")
	if err != nil {
		log.Fatal(err)
	}

	cli, err := client.New(cfg.(*config.Profile))
	if err != nil {
		log.Fatal(err)
	}
	scope := bind.NewScope(cli)
	ctx := context.Background()

	// Query binding: viewer plus their most recently pushed repositories,
	// polled so star counts stay fresh while the program runs
	viewer := bind.Bind(viewerQuery, bind.Config{
		Options: func(bind.Props) client.Options {
			return client.Options{PollInterval: 30 * time.Second}
		},
	})(bind.RenderFunc(func(p bind.Props) {
		data := p["data"].(*bind.QueryResult)
		if data.Loading {
			return
		}
		if err := data.AnyError(); err != nil {
			log.Println("viewer query failed:", err)
			return
		}
		login, _ := data.Field("viewer.login")
		fmt.Printf("Signed in as %v\n", login)
		if nodes, ok := data.Field("viewer.repositories.nodes"); ok {
			for _, n := range nodes.([]interface{}) {
				repo := n.(map[string]interface{})
				fmt.Printf("  %v (%v stars)\n", repo["nameWithOwner"], repo["stargazerCount"])
			}
		}
	}))

	if err := viewer.Mount(ctx, scope, bind.Props{}); err != nil {
		log.Fatal(err)
	}
	defer viewer.Unmount()

	time.Sleep(3 * time.Second)

	// Mutation binding: the callable is injected, nothing runs until called
	var addStar bind.MutateFunc
	star := bind.Bind(starMutation, bind.Config{})(bind.RenderFunc(func(p bind.Props) {
		addStar = p["mutate"].(bind.MutateFunc)
	}))
	if err := star.Mount(ctx, scope, bind.Props{}); err != nil {
		log.Fatal(err)
	}
	defer star.Unmount()

	// Star this project's repository
	res, err := cli.Query(ctx, operation.MustParse(`
		query getRepo($owner: String!, $name: String!) {
			repository(owner: $owner, name: $name) { id }
		}
	`), client.Options{
		Variables: map[string]interface{}{"owner": "graphbind-io", "name": "graphbind"},
	})
	if err != nil {
		log.Fatal(err)
	}
	repoID, ok := res.Field("repository.id")
	if !ok {
		log.Fatal("repository not found")
	}

	starred, err := addStar(ctx, client.Options{
		Variables: map[string]interface{}{"starrableId": repoID},
	})
	if err != nil {
		log.Fatal("star failed:", err)
	}
	count, _ := starred.Field("addStar.starrable.stargazerCount")
	fmt.Printf("Starred, now at %v stars\n", count)
}
