package quizspec

// ExampleID is the id under which ExampleDocument is served when no quiz
// source is configured.
const ExampleID = "roman-holiday"

// ExampleDocument is a small valid quiz used as the built-in sample.
const ExampleDocument = `title: "Roamin' in Rome"
description: "Team challenge"
rounds:
  - id: round-1
    title: "Ancient Rome"
    duration: 60
    questions:
      - id: r1q1
        type: multiple_choice
        question: "Construction of the Colosseum began under which emperor?"
        options:
          - "Vespasian"
          - "Titus"
          - "Hadrian"
          - "Nero"
        correctAnswer: 0
        explanation: "Vespasian commissioned it; Titus inaugurated it in 80 CE."
      - id: r1q2
        type: speed
        question: "Which road linked Rome to southern Italy?"
        options:
          - "Via Flaminia"
          - "Via Appia"
          - "Via Salaria"
        correctAnswer: 1
        points: 15
        negativePoints: 5
  - id: round-2
    title: "Final Wager"
    questions:
      - id: r2q1
        type: wager_final
        question: "In which year was Rome traditionally founded?"
        correctAnswer: "753 BC"
`
