// seed genera el script SQL que carga un catálogo de productos (CSV) en la tabla products
// del ledger. current_stock no se escribe: arranca en cero y solo lo mueve el ledger.
//
// Uso: go run ./cmd/seed [-charset iso-8859-1] catalogo.csv [salida.sql]
// Sin salida escribe en stdout.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/jhoicas/stock-ledger/internal/infrastructure/catalog"
)

func main() {
	charset := flag.String("charset", catalog.CharsetUTF8, "codificación del CSV (utf-8 | iso-8859-1)")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "uso: seed [-charset iso-8859-1] catalogo.csv [salida.sql]")
		os.Exit(2)
	}

	in, err := os.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer in.Close()

	products, err := catalog.Load(in, *charset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer catálogo: %v\n", err)
		os.Exit(1)
	}

	var out io.Writer = os.Stdout
	if flag.NArg() > 1 {
		f, err := os.Create(flag.Arg(1))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	if err := catalog.WriteSQL(out, products); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir SQL: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Generado: %d productos\n", len(products))
}
