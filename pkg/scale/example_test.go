package scale_test

import (
	"fmt"

	"github.com/matzehuels/trackview/pkg/scale"
)

func ExampleLinear() {
	s := scale.New().
		SetDomain([2]float64{0, 1000}).
		SetRange([2]float64{0, 200})

	x, _ := s.Map(250)
	fmt.Println(x)
	// Output: 50
}
