package reactive

import (
	"fmt"
)

func ExampleNewField() {
	count := NewField(0)
	fmt.Println(count.Read())

	count.Write(10)
	fmt.Println(count.Read())

	// Output:
	// 0
	// 10
}

func ExampleNewComputed() {
	count := NewField(1)
	double := NewComputed(func() int {
		fmt.Println("doubling")
		return count.Read() * 2
	})
	plustwo := NewComputed(func() int {
		fmt.Println("adding")
		return double.Read() + 2
	})
	fmt.Println(count.Read())
	fmt.Println(double.Read())
	fmt.Println(plustwo.Read())

	count.Write(10)
	fmt.Println(count.Read())
	fmt.Println(double.Read())
	fmt.Println(plustwo.Read())

	// Output:
	// 1
	// doubling
	// 2
	// adding
	// 4
	// 10
	// doubling
	// 20
	// adding
	// 22
}

func ExampleWatch() {
	state := Reactive(map[string]any{"count": 0})
	count := FieldOf[int](state, "count")

	Watch(count.Read, func(value, oldValue int) {
		fmt.Printf("count: %d -> %d\n", oldValue, value)
	})

	count.Write(1)
	count.Write(2)
	fmt.Println("written")

	Settle()

	// Output:
	// written
	// count: 0 -> 2
}

func ExampleNextTick() {
	count := NewField(0)

	NewEffect(func() {
		fmt.Println("effect", count.Read())
	})

	count.Write(1)
	NextTick(func() {
		fmt.Println("next tick")
	})
	Settle()

	// Output:
	// effect 0
	// effect 1
	// next tick
}
