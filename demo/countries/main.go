package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/graphbind-io/graphbind/pkg/bind"
	"github.com/graphbind-io/graphbind/pkg/client"
	"github.com/graphbind-io/graphbind/pkg/config"
	"github.com/graphbind-io/graphbind/pkg/operation"
)

var countryQuery = operation.MustParse(`
	query getCountry($code: ID!) {
		country(code: $code) {
			name
			capital
			currency
		}
	}
`)

func main() {
	// Load the YAML profile
	loader := config.NewDefaultLoader()
	cfg, err := loader.Load("demo/countries/countries.yaml")
	if err != nil {
		log.Fatal(err)
	}

	cli, err := client.New(cfg.(*config.Profile))
	if err != nil {
		log.Fatal(err)
	}
	scope := bind.NewScope(cli)

	// Bind the query: the country code variable comes straight from props
	wrap := bind.Bind(countryQuery, bind.Config{})

	bound := wrap(bind.RenderFunc(func(p bind.Props) {
		data, ok := p["data"].(*bind.QueryResult)
		if !ok || data.Loading {
			fmt.Println("loading...")
			return
		}
		if err := data.AnyError(); err != nil {
			fmt.Println("error:", err)
			return
		}
		name, _ := data.Field("country.name")
		capital, _ := data.Field("country.capital")
		fmt.Printf("%v, capital %v\n", name, capital)
	}))

	ctx := context.Background()
	if err := bound.Mount(ctx, scope, bind.Props{"code": "BR"}); err != nil {
		log.Fatal(err)
	}
	defer bound.Unmount()

	time.Sleep(2 * time.Second)

	// Changing the prop re-derives the variable and resubscribes
	if err := bound.SetProps(ctx, bind.Props{"code": "JP"}); err != nil {
		log.Fatal(err)
	}

	time.Sleep(2 * time.Second)

	// Second lookup of BR is served from cache, no network round trip
	if err := bound.SetProps(ctx, bind.Props{"code": "BR"}); err != nil {
		log.Fatal(err)
	}

	time.Sleep(time.Second)
}
