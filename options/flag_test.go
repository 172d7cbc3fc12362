package options_test

import (
	"datatables/options"
	"fmt"
)

func ExampleParseTag() {
	for _, tag := range []string{"-", ",hidden", "Alias,annotate", ""} {
		name, flags := options.ParseTag(tag)
		fmt.Printf("%q %s\n", name, flags)
	}
	fmt.Println(options.FlagEnum(options.FlagAll))
	// Output:
	// "" ignored
	// "" hidden
	// "Alias" annotate
	// "" none
	// ignored|hidden|annotate
}
