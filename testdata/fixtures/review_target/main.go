package main

import (
	"fmt"

	"example.com/target/store"
)

func main() {
	s := store.Open()
	rec, err := s.Lookup("alpha")
	if err != nil {
		panic(err)
	}
	fmt.Println(rec.Name)
}
