// Command schemagen writes the JSON schema of the configuration document.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/nilp0inter/monana/api/v1beta1/configs"
	"github.com/nilp0inter/monana/pkg/yaml"
)

var (
	outFile = flag.String("o", "schema.json", "Output file for the generated schema")
	rootDir = flag.String("root", "../../..", "Module root, for doc comments")
)

func main() {
	flag.Parse()

	gen := yaml.NewSchemaGenerator(configs.New(), "github.com/nilp0inter/monana", *rootDir)

	data, err := gen.Generate()
	if err != nil {
		log.Fatalf("generate JSON schema: %v", err)
	}

	if err := os.WriteFile(*outFile, data, 0o600); err != nil {
		log.Fatalf("write schema file: %v", err)
	}
}
