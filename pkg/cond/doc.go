// Package cond implements the rule condition language.
//
// Conditions are small boolean expressions over media context attributes:
//
//	type == "image" && space.city == "Madrid"
//	meta.FNumber <= 2.8 || !(time.year > 2020)
//	media.width >= 3840 && meta.Model != empty
//
// The grammar has dotted attribute references, string and number literals,
// the comparison operators ==, !=, <, <=, >, >=, and the boolean operators
// &&, || and !. There are no function calls, so evaluation cannot reach
// outside the attribute lookup it is given.
//
// Absent attributes compare as the distinct value `empty`: they are equal
// only to another empty value and are never ordered, so conditions can
// reference optional tags without failing.
package cond
