package bot

const welcomeText = `👋 Hi! I'm your travel assistant.

I can plan trips, keep packing lists and answer questions about any city.

Try /new_trip to plan your first trip, or /help to see everything I can do.`

const helpText = `Here is what I can do:

🏝 Trips
/new_trip - plan a new trip
/my_trips - show your trips

📋 Tasks
/add_task - add a task to a trip
/tasks - show tasks for all trips

🌍 City info
/weather [city] - current weather
/forecast [city] - forecast for the next days
/top_location [city] - places worth visiting

❌ /cancel - abort the current action`
