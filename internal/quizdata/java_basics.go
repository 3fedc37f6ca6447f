// Package quizdata holds the built-in quiz content.
package quizdata

import "classroom-quiz-service/internal/domain"

// JavaBasicsID is the default quiz served when no other is configured.
const JavaBasicsID = "java-basics"

// JavaBasics is a ten-question introductory Java quiz.
func JavaBasics() domain.Quiz {
	return domain.Quiz{
		ID: JavaBasicsID,
		Questions: []domain.Question{
			{Text: "Which language runs in a web browser?",
				Options: []string{"Java", "C", "Python", "JavaScript"}, Correct: 3},
			{Text: "What does JVM stand for?",
				Options: []string{"Java Virtual Machine", "Java Vendor Machine", "Joint Virtual Memory", "Java Variable Method"}, Correct: 0},
			{Text: "Which company developed the Java language?",
				Options: []string{"Microsoft", "Sun Microsystems", "Apple", "IBM"}, Correct: 1},
			{Text: "Which keyword is used to inherit a class in Java?",
				Options: []string{"implements", "extends", "inherits", "super"}, Correct: 1},
			{Text: "Which collection class allows random access by index?",
				Options: []string{"HashSet", "LinkedList", "ArrayList", "HashMap"}, Correct: 2},
			{Text: "Which operator is used for concatenation in Java?",
				Options: []string{"+", "&", "+=", "concat"}, Correct: 0},
			{Text: "Which access modifier makes a member visible only within its class?",
				Options: []string{"public", "private", "protected", "default"}, Correct: 1},
			{Text: "What is the default value of a boolean in Java?",
				Options: []string{"true", "false", "0", "null"}, Correct: 1},
			{Text: "Which package contains the Scanner class?",
				Options: []string{"java.io", "java.util", "java.lang", "java.net"}, Correct: 1},
			{Text: "Which method is the entry point of a Java program?",
				Options: []string{"main", "start", "init", "run"}, Correct: 0},
		},
	}
}
