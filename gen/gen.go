package main

import (
	gen "github.com/whyrusleeping/cbor-gen"

	"github.com/ondrix/vesting-actors/actors/builtin/vesting"
)

func main() {
	// Program return values
	if err := gen.WriteTupleEncodersToFile("./actors/builtin/vesting/cbor_gen.go", "vesting",
		vesting.Payout{},
		vesting.DistributeReturn{},
	); err != nil {
		panic(err)
	}
}
